package route

import (
	"encoding/json"
	"fmt"
	"maps"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/ValentinKolb/rmq/lib/message"
)

// MasterID is the broker id of the master role
const MasterID int64 = 0

// --------------------------------------------------------------------------
// Data Types
// --------------------------------------------------------------------------

// QueueData is the queue configuration of a topic on one broker
type QueueData struct {
	BrokerName     string     `json:"brokerName"`
	ReadQueueNums  int32      `json:"readQueueNums"`
	WriteQueueNums int32      `json:"writeQueueNums"`
	Perm           Permission `json:"perm"`
	TopicSysFlag   int32      `json:"topicSysFlag"`
}

// BrokerData describes one broker: its cluster and the addresses of its roles.
// An empty address means the role is not registered.
type BrokerData struct {
	Cluster     string           `json:"cluster"`
	BrokerName  string           `json:"brokerName"`
	BrokerAddrs map[int64]string `json:"brokerAddrs"`
}

// TopicRouteData is the route snapshot of one topic
type TopicRouteData struct {
	OrderTopicConf    string              `json:"orderTopicConf,omitempty"`
	QueueDatas        []QueueData         `json:"queueDatas"`
	BrokerDatas       []BrokerData        `json:"brokerDatas"`
	FilterServerTable map[string][]string `json:"filterServerTable,omitempty"`
}

// TopicPublishInfo is the producer view of a topic route
type TopicPublishInfo struct {
	OrderTopic    bool
	MessageQueues []message.MessageQueue
	RouteData     *TopicRouteData
}

// Ok reports whether there is at least one queue to publish to
func (p *TopicPublishInfo) Ok() bool {
	return p != nil && len(p.MessageQueues) > 0
}

// --------------------------------------------------------------------------
// Broker Data
// --------------------------------------------------------------------------

// MasterAddr returns the master address, "" if no master is registered
func (b *BrokerData) MasterAddr() string {
	return b.BrokerAddrs[MasterID]
}

// SelectBrokerAddr returns the master address if present, otherwise a random
// non empty slave address. Returns "" if the broker has no address at all.
func (b *BrokerData) SelectBrokerAddr() string {
	if addr := b.MasterAddr(); addr != "" {
		return addr
	}

	slaves := make([]string, 0, len(b.BrokerAddrs))
	for id, addr := range b.BrokerAddrs {
		if id != MasterID && addr != "" {
			slaves = append(slaves, addr)
		}
	}
	if len(slaves) == 0 {
		return ""
	}
	return slaves[rand.Intn(len(slaves))]
}

// Clone returns a deep copy
func (b *BrokerData) Clone() BrokerData {
	return BrokerData{
		Cluster:     b.Cluster,
		BrokerName:  b.BrokerName,
		BrokerAddrs: maps.Clone(b.BrokerAddrs),
	}
}

func (b *BrokerData) equal(other *BrokerData) bool {
	return b.Cluster == other.Cluster &&
		b.BrokerName == other.BrokerName &&
		maps.Equal(b.BrokerAddrs, other.BrokerAddrs)
}

// --------------------------------------------------------------------------
// Topic Route Data
// --------------------------------------------------------------------------

// ParseTopicRouteData decodes the body of a route response.
// Bare integer map keys are quoted before decoding.
func ParseTopicRouteData(body []byte) (*TopicRouteData, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty route data")
	}

	data := &TopicRouteData{}
	if err := json.Unmarshal(RepairJSON(body), data); err != nil {
		return nil, fmt.Errorf("failed to decode route data: %w", err)
	}
	return data, nil
}

// Clone returns a deep copy
func (r *TopicRouteData) Clone() *TopicRouteData {
	if r == nil {
		return nil
	}

	c := &TopicRouteData{
		OrderTopicConf: r.OrderTopicConf,
		QueueDatas:     append([]QueueData(nil), r.QueueDatas...),
		BrokerDatas:    make([]BrokerData, len(r.BrokerDatas)),
	}
	for i := range r.BrokerDatas {
		c.BrokerDatas[i] = r.BrokerDatas[i].Clone()
	}
	if r.FilterServerTable != nil {
		c.FilterServerTable = make(map[string][]string, len(r.FilterServerTable))
		for k, v := range r.FilterServerTable {
			c.FilterServerTable[k] = append([]string(nil), v...)
		}
	}
	return c
}

// Equal reports whether two snapshots describe the same topology.
// The order of the queue and broker lists is not significant, the filter
// server table is ignored.
func (r *TopicRouteData) Equal(other *TopicRouteData) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.OrderTopicConf != other.OrderTopicConf ||
		len(r.QueueDatas) != len(other.QueueDatas) ||
		len(r.BrokerDatas) != len(other.BrokerDatas) {
		return false
	}

	qa, qb := sortedQueueDatas(r.QueueDatas), sortedQueueDatas(other.QueueDatas)
	for i := range qa {
		if qa[i] != qb[i] {
			return false
		}
	}

	ba, bb := sortedBrokerDatas(r.BrokerDatas), sortedBrokerDatas(other.BrokerDatas)
	for i := range ba {
		if !ba[i].equal(&bb[i]) {
			return false
		}
	}
	return true
}

// WithQueueLimit returns a copy whose read and write queue counts are clamped
// down to limit. Counts below the limit are kept.
func (r *TopicRouteData) WithQueueLimit(limit int32) *TopicRouteData {
	c := r.Clone()
	for i := range c.QueueDatas {
		if c.QueueDatas[i].ReadQueueNums > limit {
			c.QueueDatas[i].ReadQueueNums = limit
		}
		if c.QueueDatas[i].WriteQueueNums > limit {
			c.QueueDatas[i].WriteQueueNums = limit
		}
	}
	return c
}

// FindBrokerData returns the broker data for a broker name
func (r *TopicRouteData) FindBrokerData(brokerName string) (*BrokerData, bool) {
	for i := range r.BrokerDatas {
		if r.BrokerDatas[i].BrokerName == brokerName {
			return &r.BrokerDatas[i], true
		}
	}
	return nil, false
}

// SubscribeQueues returns one queue per read queue of every readable QueueData
func (r *TopicRouteData) SubscribeQueues(topic string) []message.MessageQueue {
	mqs := make([]message.MessageQueue, 0)
	for _, qd := range r.QueueDatas {
		if !qd.Perm.IsReadable() {
			continue
		}
		for i := int32(0); i < qd.ReadQueueNums; i++ {
			mqs = append(mqs, message.MessageQueue{Topic: topic, BrokerName: qd.BrokerName, QueueID: i})
		}
	}
	return mqs
}

// PublishQueues returns the queues a producer may send to.
// If an order topic configuration is present its layout is used as is.
// Otherwise the QueueDatas are walked in reverse order, entries without write
// permission or without a master address are skipped.
func (r *TopicRouteData) PublishQueues(topic string) []message.MessageQueue {
	if r.OrderTopicConf != "" {
		return ParseOrderTopicConf(topic, r.OrderTopicConf)
	}

	mqs := make([]message.MessageQueue, 0)
	for i := len(r.QueueDatas) - 1; i >= 0; i-- {
		qd := r.QueueDatas[i]
		if !qd.Perm.IsWriteable() {
			continue
		}
		bd, ok := r.FindBrokerData(qd.BrokerName)
		if !ok || bd.MasterAddr() == "" {
			continue
		}
		for q := int32(0); q < qd.WriteQueueNums; q++ {
			mqs = append(mqs, message.MessageQueue{Topic: topic, BrokerName: qd.BrokerName, QueueID: q})
		}
	}
	return mqs
}

// PublishInfo returns the producer view of the route
func (r *TopicRouteData) PublishInfo(topic string) *TopicPublishInfo {
	return &TopicPublishInfo{
		OrderTopic:    r.OrderTopicConf != "",
		MessageQueues: r.PublishQueues(topic),
		RouteData:     r,
	}
}

// MaxOrderQueueNums bounds the queue count of one order topic conf entry
const MaxOrderQueueNums = 65535

// ParseOrderTopicConf expands a "brokerName:count;brokerName:count" layout into
// queues 0..count-1 for every broker in the given order. Malformed entries and
// counts outside [0, MaxOrderQueueNums] are skipped.
func ParseOrderTopicConf(topic, conf string) []message.MessageQueue {
	mqs := make([]message.MessageQueue, 0)
	for _, entry := range strings.Split(conf, ";") {
		name, count, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || name == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 0 || n > MaxOrderQueueNums {
			continue
		}
		for i := 0; i < n; i++ {
			mqs = append(mqs, message.MessageQueue{Topic: topic, BrokerName: name, QueueID: int32(i)})
		}
	}
	return mqs
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func sortedQueueDatas(in []QueueData) []QueueData {
	out := append([]QueueData(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].BrokerName < out[j].BrokerName })
	return out
}

func sortedBrokerDatas(in []BrokerData) []BrokerData {
	out := append([]BrokerData(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].BrokerName < out[j].BrokerName })
	return out
}
