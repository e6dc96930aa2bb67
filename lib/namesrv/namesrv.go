package namesrv

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/rmq/lib/message"
	"github.com/ValentinKolb/rmq/lib/route"
	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("namesrv")

// NameServers resolves topic routes from the name server tier and caches them.
// All methods are safe for concurrent use, no lock is held during network calls.
type NameServers struct {
	provider IAddressProvider
	client   transport.IRemotingClient
	registry metrics.Registry

	queryTimer   metrics.Timer
	failures     metrics.Counter
	routeChanges metrics.Counter

	// cursor is the round robin start index, wrapping is intentional
	cursor atomic.Uint64

	mu      sync.RWMutex
	servers []string
	routes  map[string]*route.TopicRouteData
	brokers map[string]*route.BrokerData
}

// Option configures a NameServers instance
type Option func(*NameServers)

// WithRegistry records the resolver metrics in r instead of a private registry
func WithRegistry(r metrics.Registry) Option {
	return func(n *NameServers) { n.registry = r }
}

// New resolves the initial address list with provider. An empty list is not
// an error, queries fail with common.ErrEmptyNameServers until Refresh finds servers.
func New(ctx context.Context, provider IAddressProvider, client transport.IRemotingClient, opts ...Option) (*NameServers, error) {
	n := &NameServers{
		provider: provider,
		client:   client,
		routes:   make(map[string]*route.TopicRouteData),
		brokers:  make(map[string]*route.BrokerData),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.registry == nil {
		n.registry = metrics.NewRegistry()
	}
	n.queryTimer = metrics.GetOrRegisterTimer("namesrv.query", n.registry)
	n.failures = metrics.GetOrRegisterCounter("namesrv.query.failures", n.registry)
	n.routeChanges = metrics.GetOrRegisterCounter("namesrv.route.changes", n.registry)

	servers, err := provider.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve name servers using %s: %w", provider.Description(), err)
	}
	n.servers = servers

	Logger.Infof("Resolved %d name servers using %s: %v", len(servers), provider.Description(), servers)
	return n, nil
}

// --------------------------------------------------------------------------
// Name Server Addresses
// --------------------------------------------------------------------------

// Refresh re-runs the provider. On error the previous list is kept.
func (n *NameServers) Refresh(ctx context.Context) error {
	servers, err := n.provider.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve name servers using %s: %w", n.provider.Description(), err)
	}

	n.mu.Lock()
	n.servers = servers
	n.mu.Unlock()

	Logger.Debugf("Refreshed name servers: %v", servers)
	return nil
}

// Addrs returns a copy of the current name server addresses
func (n *NameServers) Addrs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]string(nil), n.servers...)
}

// Len returns the number of name servers
func (n *NameServers) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

// Metrics returns the registry holding the resolver metrics
func (n *NameServers) Metrics() metrics.Registry {
	return n.registry
}

// --------------------------------------------------------------------------
// Route Queries
// --------------------------------------------------------------------------

// QueryTopicRouteInfo fetches the route of topic. Name servers are tried in
// order starting at the round robin cursor until one answers.
//
// Errors:
//   - common.ErrEmptyNameServers if no name server is configured
//   - *common.TopicNotExistError if a name server does not know the topic
//   - *common.ResponseError for any other non success response
//   - common.ErrEmptyRouteData if no name server could be reached
func (n *NameServers) QueryTopicRouteInfo(ctx context.Context, topic string) (*route.TopicRouteData, error) {
	servers := n.Addrs()
	if len(servers) == 0 {
		return nil, common.ErrEmptyNameServers
	}
	defer n.queryTimer.UpdateSince(time.Now())

	start := int((n.cursor.Add(1) - 1) % uint64(len(servers)))
	for i := range servers {
		addr := servers[(start+i)%len(servers)]

		req := common.NewRequest(common.ReqGetRouteInfoByTopic, common.GetRouteInfoRequestHeader{Topic: topic}, nil)
		res, err := n.client.Invoke(ctx, addr, req)
		if err != nil {
			n.failures.Inc(1)
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: querying route of %s: %w", common.ErrCanceled, topic, ctx.Err())
			}
			Logger.Warningf("Failed to query route of %s from name server %s: %v", topic, addr, err)
			continue
		}

		switch res.Header.Code {
		case common.ResSuccess:
			if len(res.Body) == 0 {
				n.failures.Inc(1)
				Logger.Warningf("Name server %s returned an empty route for %s", addr, topic)
				continue
			}
			data, err := route.ParseTopicRouteData(res.Body)
			if err != nil {
				n.failures.Inc(1)
				Logger.Warningf("Failed to decode route of %s from name server %s: %v", topic, addr, err)
				continue
			}
			return data, nil
		case common.ResTopicNotExist:
			return nil, &common.TopicNotExistError{Topic: topic}
		default:
			return nil, common.NewResponseError(res)
		}
	}

	return nil, common.ErrEmptyRouteData
}

// UpdateTopicRouteInfo fetches the route of topic and updates the caches.
// It returns true if the route differs from the cached one or was not cached.
func (n *NameServers) UpdateTopicRouteInfo(ctx context.Context, topic string) (bool, error) {
	data, err := n.QueryTopicRouteInfo(ctx, topic)
	if err != nil {
		return false, err
	}
	return n.updateCache(topic, data), nil
}

// UpdateTopicRouteInfoWithDefault fetches the route of defaultTopic, clamps its
// queue counts to queueNum and caches it as route of topic
func (n *NameServers) UpdateTopicRouteInfoWithDefault(ctx context.Context, topic, defaultTopic string, queueNum int32) (bool, error) {
	data, err := n.QueryTopicRouteInfo(ctx, defaultTopic)
	if err != nil {
		return false, err
	}
	return n.updateCache(topic, data.WithQueueLimit(queueNum)), nil
}

// FetchSubscribeMessageQueues returns one queue per readable queue index of topic
func (n *NameServers) FetchSubscribeMessageQueues(ctx context.Context, topic string) ([]message.MessageQueue, error) {
	data, err := n.QueryTopicRouteInfo(ctx, topic)
	if err != nil {
		return nil, err
	}
	return data.SubscribeQueues(topic), nil
}

// FetchPublishMessageQueues returns the queues a producer may send to
func (n *NameServers) FetchPublishMessageQueues(ctx context.Context, topic string) ([]message.MessageQueue, error) {
	data, err := n.QueryTopicRouteInfo(ctx, topic)
	if err != nil {
		return nil, err
	}
	return data.PublishQueues(topic), nil
}

// FetchPublishInfo returns the producer view of the route of topic
func (n *NameServers) FetchPublishInfo(ctx context.Context, topic string) (*route.TopicPublishInfo, error) {
	data, err := n.QueryTopicRouteInfo(ctx, topic)
	if err != nil {
		return nil, err
	}
	return data.PublishInfo(topic), nil
}

// --------------------------------------------------------------------------
// Cache Lookups
// --------------------------------------------------------------------------

// FindBrokerAddrByTopic returns the address of a random broker of the cached
// route of topic, preferring the master. Returns false if nothing is cached.
func (n *NameServers) FindBrokerAddrByTopic(topic string) (string, bool) {
	n.mu.RLock()
	data, ok := n.routes[topic]
	n.mu.RUnlock()

	if !ok || len(data.BrokerDatas) == 0 {
		return "", false
	}

	// cached snapshots are never mutated
	bd := data.BrokerDatas[rand.Intn(len(data.BrokerDatas))]
	addr := bd.SelectBrokerAddr()
	return addr, addr != ""
}

// FindBrokerAddrByName returns the master address of a cached broker
func (n *NameServers) FindBrokerAddrByName(brokerName string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	bd, ok := n.brokers[brokerName]
	if !ok {
		return "", false
	}
	addr := bd.MasterAddr()
	return addr, addr != ""
}

// TopicRouteData returns a copy of the cached route of topic
func (n *NameServers) TopicRouteData(topic string) (*route.TopicRouteData, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	data, ok := n.routes[topic]
	if !ok {
		return nil, false
	}
	return data.Clone(), true
}

// Topics returns the sorted names of all cached topics
func (n *NameServers) Topics() []string {
	n.mu.RLock()
	topics := make([]string, 0, len(n.routes))
	for topic := range n.routes {
		topics = append(topics, topic)
	}
	n.mu.RUnlock()

	sort.Strings(topics)
	return topics
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// updateCache stores data as route of topic if it changed and merges its brokers
func (n *NameServers) updateCache(topic string, data *route.TopicRouteData) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if old, ok := n.routes[topic]; ok && old.Equal(data) {
		return false
	}

	for i := range data.BrokerDatas {
		bd := data.BrokerDatas[i].Clone()
		n.brokers[bd.BrokerName] = &bd
	}
	n.routes[topic] = data.Clone()
	n.routeChanges.Inc(1)

	Logger.Infof("Route of %s changed: %d queue datas, %d brokers", topic, len(data.QueueDatas), len(data.BrokerDatas))
	return true
}
