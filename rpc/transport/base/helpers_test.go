package base

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/serializer"
)

// testConnector dials TCP and counts connect attempts
type testConnector struct {
	connects atomic.Int32
	failures atomic.Int32 // number of attempts that fail before dialing
	delay    time.Duration
}

func (c *testConnector) GetName() string { return "test" }

func (c *testConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	c.connects.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.failures.Add(-1) >= 0 {
		return nil, errors.New("connection refused")
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", endpoint)
}

func (c *testConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

// testServerConnector listens on an ephemeral local TCP port
type testServerConnector struct{}

func (c *testServerConnector) GetName() string { return "test" }

func (c *testServerConnector) Listen(common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

func (c *testServerConnector) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

// rawServer hands every accepted socket to the test
type rawServer struct {
	listener net.Listener
	conns    chan net.Conn
}

func newRawServer(t *testing.T) *rawServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	s := &rawServer{listener: l, conns: make(chan net.Conn, 16)}
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			s.conns <- c
		}
	}()
	t.Cleanup(func() {
		l.Close()
		for {
			select {
			case c := <-s.conns:
				c.Close()
			default:
				return
			}
		}
	})
	return s
}

func (s *rawServer) addr() string { return s.listener.Addr().String() }

// accept waits for the next connection
func (s *rawServer) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a connection")
		return nil
	}
}

// respond writes a success response for req carrying body
func respond(conn net.Conn, req *common.Command, body string) error {
	res := common.NewResponse(req, common.ResSuccess, "")
	res.Body = []byte(body)
	return serializer.WriteFrame(conn, res, serializer.NewJSONSerializer())
}

func testClientConfig() common.ClientConfig {
	config := common.DefaultClientConfig()
	config.TimeoutSecond = 5
	return config
}

func newTestClient(t *testing.T, connector IClientConnector, config common.ClientConfig) *clientTransport {
	t.Helper()
	c, err := NewBaseClientTransport(connector, config)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Shutdown() })
	return c.(*clientTransport)
}

// connect returns the multiplexed connection to addr
func connect(t *testing.T, c *clientTransport, addr string) *Connection {
	t.Helper()
	conn, err := c.getOrCreateConnection(context.Background(), addr)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	return conn
}
