package namesrv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/transport"
	"github.com/ValentinKolb/rmq/rpc/transport/tcp"
	"github.com/stretchr/testify/require"
)

const routeJSON = `{"orderTopicConf":"","queueDatas":[{"brokerName":"broker-a","readQueueNums":4,"writeQueueNums":4,"perm":6,"topicSysFlag":0}],"brokerDatas":[{"cluster":"DefaultCluster","brokerName":"broker-a","brokerAddrs":{0:"10.0.0.1:10911",1:"10.0.0.2:10911"}}]}`

// fakeClient answers requests per address with a handler or a connection error
type fakeClient struct {
	mu       sync.Mutex
	handlers map[string]func(req *common.Command) *common.Command
	calls    []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]func(req *common.Command) *common.Command)}
}

func (f *fakeClient) handle(addr string, fn func(req *common.Command) *common.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[addr] = fn
}

func (f *fakeClient) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) Invoke(ctx context.Context, addr string, cmd *common.Command) (*common.Command, error) {
	f.mu.Lock()
	f.calls = append(f.calls, addr)
	fn, ok := f.handlers[addr]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("failed to connect to %s: connection refused", addr)
	}
	return fn(cmd), nil
}

func (f *fakeClient) GetOrCreateConnection(context.Context, string) (transport.IConnection, error) {
	return nil, errors.New("not supported")
}

func (f *fakeClient) InvokeOneway(context.Context, string, *common.Command) error { return nil }

func (f *fakeClient) RegisterProcessor(int16, transport.ProcessorFunc) {}

func (f *fakeClient) WriteMetrics(io.Writer) {}

func (f *fakeClient) Shutdown() error { return nil }

// routeResponse answers with body as route data
func routeResponse(body string) func(req *common.Command) *common.Command {
	return func(req *common.Command) *common.Command {
		res := common.NewResponse(req, common.ResSuccess, "")
		res.Body = []byte(body)
		return res
	}
}

func codeResponse(code int16, remark string) func(req *common.Command) *common.Command {
	return func(req *common.Command) *common.Command {
		return common.NewResponse(req, code, remark)
	}
}

func newNameServers(t *testing.T, client transport.IRemotingClient, addrs ...string) *NameServers {
	t.Helper()
	n, err := New(context.Background(), NewStaticProvider(addrs), client)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return n
}

func TestQueryTopicRouteInfo(t *testing.T) {
	tests := []struct {
		name     string
		addrs    []string
		handlers map[string]func(req *common.Command) *common.Command
		check    func(t *testing.T, err error)
		calls    int
	}{
		{
			name:  "no name servers",
			addrs: nil,
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, common.ErrEmptyNameServers) },
		},
		{
			name:     "success",
			addrs:    []string{"ns1:9876"},
			handlers: map[string]func(req *common.Command) *common.Command{"ns1:9876": routeResponse(routeJSON)},
			check:    func(t *testing.T, err error) { require.NoError(t, err) },
			calls:    1,
		},
		{
			name:     "failover to second server",
			addrs:    []string{"ns1:9876", "ns2:9876"},
			handlers: map[string]func(req *common.Command) *common.Command{"ns2:9876": routeResponse(routeJSON)},
			check:    func(t *testing.T, err error) { require.NoError(t, err) },
			calls:    2,
		},
		{
			name:  "empty body tries next server",
			addrs: []string{"ns1:9876", "ns2:9876"},
			handlers: map[string]func(req *common.Command) *common.Command{
				"ns1:9876": routeResponse(""),
				"ns2:9876": routeResponse(routeJSON),
			},
			check: func(t *testing.T, err error) { require.NoError(t, err) },
			calls: 2,
		},
		{
			name:  "topic not exist is terminal",
			addrs: []string{"ns1:9876", "ns2:9876"},
			handlers: map[string]func(req *common.Command) *common.Command{
				"ns1:9876": codeResponse(common.ResTopicNotExist, "No topic route info"),
				"ns2:9876": routeResponse(routeJSON),
			},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, common.ErrTopicNotExist)
				var notExist *common.TopicNotExistError
				require.ErrorAs(t, err, &notExist)
				require.Equal(t, "TopicTest", notExist.Topic)
			},
			calls: 1,
		},
		{
			name:  "error response is terminal",
			addrs: []string{"ns1:9876", "ns2:9876"},
			handlers: map[string]func(req *common.Command) *common.Command{
				"ns1:9876": codeResponse(common.ResSystemBusy, "busy"),
				"ns2:9876": routeResponse(routeJSON),
			},
			check: func(t *testing.T, err error) {
				var resErr *common.ResponseError
				require.ErrorAs(t, err, &resErr)
				require.Equal(t, common.ResSystemBusy, resErr.Code)
				require.Equal(t, "busy", resErr.Message)
			},
			calls: 1,
		},
		{
			name:  "all servers unreachable",
			addrs: []string{"ns1:9876", "ns2:9876", "ns3:9876"},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, common.ErrEmptyRouteData) },
			calls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			for addr, fn := range tt.handlers {
				client.handle(addr, fn)
			}
			n := newNameServers(t, client, tt.addrs...)

			data, err := n.QueryTopicRouteInfo(context.Background(), "TopicTest")
			tt.check(t, err)
			if err == nil {
				require.Len(t, data.BrokerDatas, 1)
				require.Equal(t, "10.0.0.1:10911", data.BrokerDatas[0].MasterAddr())
			}
			require.Len(t, client.called(), tt.calls)
		})
	}
}

func TestQueryRoundRobinCursor(t *testing.T) {
	client := newFakeClient()
	addrs := []string{"ns1:9876", "ns2:9876", "ns3:9876"}
	for _, addr := range addrs {
		client.handle(addr, routeResponse(routeJSON))
	}
	n := newNameServers(t, client, addrs...)

	for i := 0; i < 4; i++ {
		_, err := n.QueryTopicRouteInfo(context.Background(), "TopicTest")
		require.NoError(t, err)
	}
	require.Equal(t, []string{"ns1:9876", "ns2:9876", "ns3:9876", "ns1:9876"}, client.called())
}

func TestUpdateTopicRouteInfo(t *testing.T) {
	client := newFakeClient()
	client.handle("ns1:9876", routeResponse(routeJSON))
	n := newNameServers(t, client, "ns1:9876")

	_, ok := n.TopicRouteData("TopicTest")
	require.False(t, ok)
	_, ok = n.FindBrokerAddrByTopic("TopicTest")
	require.False(t, ok)

	changed, err := n.UpdateTopicRouteInfo(context.Background(), "TopicTest")
	require.NoError(t, err)
	require.True(t, changed)

	// unchanged route
	changed, err = n.UpdateTopicRouteInfo(context.Background(), "TopicTest")
	require.NoError(t, err)
	require.False(t, changed)

	addr, ok := n.FindBrokerAddrByName("broker-a")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1:10911", addr)

	addr, ok = n.FindBrokerAddrByTopic("TopicTest")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1:10911", addr)

	_, ok = n.FindBrokerAddrByName("broker-b")
	require.False(t, ok)

	require.Equal(t, []string{"TopicTest"}, n.Topics())
	require.Equal(t, int64(1), n.routeChanges.Count())

	// snapshot copies are independent of the cache
	data, ok := n.TopicRouteData("TopicTest")
	require.True(t, ok)
	data.BrokerDatas[0].BrokerAddrs[0] = "changed"
	addr, _ = n.FindBrokerAddrByTopic("TopicTest")
	require.Equal(t, "10.0.0.1:10911", addr)

	// a changed route is detected
	client.handle("ns1:9876", routeResponse(`{"queueDatas":[{"brokerName":"broker-a","readQueueNums":8,"writeQueueNums":8,"perm":6}],"brokerDatas":[{"cluster":"DefaultCluster","brokerName":"broker-a","brokerAddrs":{0:"10.0.0.1:10911",1:"10.0.0.2:10911"}}]}`))
	changed, err = n.UpdateTopicRouteInfo(context.Background(), "TopicTest")
	require.NoError(t, err)
	require.True(t, changed)
}

func TestUpdateTopicRouteInfoErrorKeepsCache(t *testing.T) {
	client := newFakeClient()
	client.handle("ns1:9876", routeResponse(routeJSON))
	n := newNameServers(t, client, "ns1:9876")

	_, err := n.UpdateTopicRouteInfo(context.Background(), "TopicTest")
	require.NoError(t, err)

	client.handle("ns1:9876", codeResponse(common.ResTopicNotExist, ""))
	changed, err := n.UpdateTopicRouteInfo(context.Background(), "TopicTest")
	require.ErrorIs(t, err, common.ErrTopicNotExist)
	require.False(t, changed)

	_, ok := n.TopicRouteData("TopicTest")
	require.True(t, ok)
}

func TestUpdateTopicRouteInfoWithDefault(t *testing.T) {
	client := newFakeClient()
	client.handle("ns1:9876", func(req *common.Command) *common.Command {
		if req.ExtField("topic") != "TBW102" {
			return common.NewResponse(req, common.ResTopicNotExist, "")
		}
		return routeResponse(routeJSON)(req)
	})
	n := newNameServers(t, client, "ns1:9876")

	changed, err := n.UpdateTopicRouteInfoWithDefault(context.Background(), "NewTopic", "TBW102", 2)
	require.NoError(t, err)
	require.True(t, changed)

	data, ok := n.TopicRouteData("NewTopic")
	require.True(t, ok)
	require.Equal(t, int32(2), data.QueueDatas[0].ReadQueueNums)
	require.Equal(t, int32(2), data.QueueDatas[0].WriteQueueNums)

	_, ok = n.TopicRouteData("TBW102")
	require.False(t, ok)
}

func TestFetchMessageQueues(t *testing.T) {
	client := newFakeClient()
	client.handle("ns1:9876", routeResponse(routeJSON))
	n := newNameServers(t, client, "ns1:9876")

	sub, err := n.FetchSubscribeMessageQueues(context.Background(), "TopicTest")
	require.NoError(t, err)
	require.Len(t, sub, 4)

	pub, err := n.FetchPublishMessageQueues(context.Background(), "TopicTest")
	require.NoError(t, err)
	require.Len(t, pub, 4)
	for i, mq := range pub {
		require.Equal(t, "TopicTest", mq.Topic)
		require.Equal(t, "broker-a", mq.BrokerName)
		require.Equal(t, int32(i), mq.QueueID)
	}

	info, err := n.FetchPublishInfo(context.Background(), "TopicTest")
	require.NoError(t, err)
	require.True(t, info.Ok())
	require.False(t, info.OrderTopic)
}

func TestRefresh(t *testing.T) {
	t.Setenv(EnvNameServerAddr, "ns1:9876")
	n, err := New(context.Background(), NewEnvProvider(), newFakeClient())
	require.NoError(t, err)
	require.Equal(t, []string{"ns1:9876"}, n.Addrs())

	t.Setenv(EnvNameServerAddr, "ns1:9876;ns2:9876")
	require.NoError(t, n.Refresh(context.Background()))
	require.Equal(t, 2, n.Len())
}

// TestQueryOverTCP runs the resolver against a real name server stand-in
func TestQueryOverTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server, err := tcp.NewTCPServerTransport(common.ServerConfig{MaxWorkersPerConn: 2})
	require.NoError(t, err)
	server.RegisterHandler(func(req *common.Command) *common.Command {
		if req.Header.Code != common.ReqGetRouteInfoByTopic {
			return common.NewResponse(req, common.ResRequestCodeNotSupported, "")
		}
		if req.ExtField("topic") != "TopicTest" {
			return common.NewResponse(req, common.ResTopicNotExist, "No topic route info in name server for the topic: "+req.ExtField("topic"))
		}
		return routeResponse(routeJSON)(req)
	})
	go server.Serve(listener)
	defer server.Close()

	// the first name server refuses connections
	dead, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := dead.Addr().String()
	dead.Close()

	client, err := tcp.NewTCPClientTransport(common.DefaultClientConfig())
	require.NoError(t, err)
	defer client.Shutdown()

	n, err := New(context.Background(), NewStaticProvider([]string{deadAddr, "http://" + listener.Addr().String()}), client)
	require.NoError(t, err)

	changed, err := n.UpdateTopicRouteInfo(context.Background(), "TopicTest")
	require.NoError(t, err)
	require.True(t, changed)

	addr, ok := n.FindBrokerAddrByName("broker-a")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1:10911", addr)

	_, err = n.QueryTopicRouteInfo(context.Background(), "Unknown")
	require.ErrorIs(t, err, common.ErrTopicNotExist)

	require.GreaterOrEqual(t, n.failures.Count(), int64(1))
	require.GreaterOrEqual(t, n.queryTimer.Count(), int64(2))
}
