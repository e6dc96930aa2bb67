package base

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/serializer"
	"github.com/ValentinKolb/rmq/rpc/transport"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("remoting")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint.
	// It must give up when ctx is done.
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// connEntry is the state of one address in the connection table.
// While connecting conn is nil and waiters block on done. The connect goroutine
// sets conn or err and closes done exactly once.
type connEntry struct {
	done chan struct{}
	conn *Connection
	err  error
}

// clientTransport implements the connection multiplexer independent of the
// specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	id         string
	connector  IClientConnector
	config     common.ClientConfig
	codec      serializer.IHeaderSerializer
	metrics    *clientMetrics
	processors *xsync.MapOf[int16, transport.ProcessorFunc]

	mu          sync.Mutex
	connections map[string]*connEntry
	stopping    atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new connection multiplexer with the specified connector.
// Connections are opened lazily on first use.
func NewBaseClientTransport(connector IClientConnector, config common.ClientConfig) (transport.IRemotingClient, error) {
	codec, err := serializer.FromName(config.Codec)
	if err != nil {
		return nil, err
	}

	t := &clientTransport{
		id:          uuid.NewString(),
		connector:   connector,
		config:      config,
		codec:       codec,
		processors:  xsync.NewMapOf[int16, transport.ProcessorFunc](),
		connections: make(map[string]*connEntry),
	}
	t.metrics = newClientMetrics(t.connectionCount)

	Logger.Debugf("Created %s client %s (codec %s, signing %t)", connector.GetName(), t.id, codec.Type(), !config.Credentials.IsEmpty())
	return t, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRemotingClient)
// --------------------------------------------------------------------------

func (t *clientTransport) GetOrCreateConnection(ctx context.Context, addr string) (transport.IConnection, error) {
	conn, err := t.getOrCreateConnection(ctx, addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (t *clientTransport) Invoke(ctx context.Context, addr string, cmd *common.Command) (*common.Command, error) {
	conn, err := t.getOrCreateConnection(ctx, addr)
	if err != nil {
		t.metrics.requestErrors.Inc()
		return nil, err
	}
	return conn.Invoke(ctx, cmd)
}

func (t *clientTransport) InvokeOneway(ctx context.Context, addr string, cmd *common.Command) error {
	conn, err := t.getOrCreateConnection(ctx, addr)
	if err != nil {
		t.metrics.requestErrors.Inc()
		return err
	}
	return conn.InvokeOneway(ctx, cmd)
}

func (t *clientTransport) RegisterProcessor(code int16, fn transport.ProcessorFunc) {
	t.processors.Store(code, fn)
}

func (t *clientTransport) WriteMetrics(w io.Writer) {
	t.metrics.set.WritePrometheus(w)
}

func (t *clientTransport) Shutdown() error {
	if !t.stopping.CompareAndSwap(false, true) {
		return nil
	}

	// take the table, connect goroutines that finish later see stopping and close their connection
	t.mu.Lock()
	entries := t.connections
	t.connections = make(map[string]*connEntry)
	t.mu.Unlock()

	for addr, entry := range entries {
		select {
		case <-entry.done:
		default:
			continue
		}
		if entry.conn == nil {
			continue
		}
		if err := entry.conn.Close(); err != nil {
			Logger.Debugf("Error closing connection to %s: %v", addr, err)
		}
		entry.conn.wait()
	}

	Logger.Infof("Client %s shut down, closed %d connections", t.id, len(entries))
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getOrCreateConnection returns the live connection for addr or joins/starts
// the single connect attempt for it
func (t *clientTransport) getOrCreateConnection(ctx context.Context, addr string) (*Connection, error) {
	for {
		t.mu.Lock()
		if t.stopping.Load() {
			t.mu.Unlock()
			return nil, common.ErrShutdown
		}

		entry, ok := t.connections[addr]
		if !ok {
			entry = &connEntry{done: make(chan struct{})}
			t.connections[addr] = entry
			go t.connect(addr, entry)
		}
		t.mu.Unlock()

		select {
		case <-entry.done:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: waiting for connection to %s: %w", common.ErrCanceled, addr, ctx.Err())
		}

		if entry.err != nil {
			return nil, entry.err
		}
		if !entry.conn.isClosed() {
			return entry.conn, nil
		}

		// the connection died after it was established, drop it and retry
		t.removeEntry(addr, entry)
	}
}

// connect establishes the connection for entry and broadcasts the outcome
func (t *clientTransport) connect(addr string, entry *connEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), t.connectTimeout())
	defer cancel()

	t.metrics.connects.Inc()
	start := time.Now()

	conn, err := t.dial(ctx, addr)

	t.mu.Lock()
	if err == nil && t.stopping.Load() {
		err = common.ErrShutdown
	}
	if err != nil {
		if t.connections[addr] == entry {
			delete(t.connections, addr)
		}
	} else {
		entry.conn = newConnection(t, addr, conn)
	}
	entry.err = err
	close(entry.done)
	t.mu.Unlock()

	if err != nil {
		t.metrics.connectErrors.Inc()
		if conn != nil {
			conn.Close()
		}
		Logger.Warningf("Failed to connect to %s: %v", addr, err)
		return
	}

	Logger.Infof("Connected to %s using %s transport in %s (connection %s)", addr, t.connector.GetName(), time.Since(start), entry.conn.id)
}

// dial opens and upgrades the socket
func (t *clientTransport) dial(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := t.connector.Connect(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", addr, err)
	}
	return conn, nil
}

// removeEntry removes entry from the table if it is still the current one for addr
func (t *clientTransport) removeEntry(addr string, entry *connEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connections[addr] == entry {
		delete(t.connections, addr)
	}
}

// removeConnection is called by a connection once it is closed
func (t *clientTransport) removeConnection(conn *Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.connections[conn.addr]; ok && entry.conn == conn {
		delete(t.connections, conn.addr)
	}
}

// connectionCount returns the number of established connections
func (t *clientTransport) connectionCount() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, entry := range t.connections {
		if entry.conn != nil {
			n++
		}
	}
	return float64(n)
}

// dispatch hands a server initiated command to its processor
func (t *clientTransport) dispatch(conn *Connection, req *common.Command) {
	fn, ok := t.processors.Load(req.Header.Code)
	if !ok {
		Logger.Warningf("No processor for request code %d from %s, dropping %s", req.Header.Code, conn.addr, req)
		return
	}

	go func() {
		res := fn(conn.addr, req)
		if res == nil || req.IsOneway() {
			return
		}
		res.Header.Opaque = req.Header.Opaque
		res.MarkResponse()
		if !conn.outbound.Push(res) {
			Logger.Debugf("Connection to %s closed before the response to code %d was sent", conn.addr, req.Header.Code)
		}
	}()
}

func (t *clientTransport) connectTimeout() time.Duration {
	if d := t.config.ConnectTimeout(); d > 0 {
		return d
	}
	return defaultConnectTimeout
}

func (t *clientTransport) requestTimeout() time.Duration {
	if d := t.config.Timeout(); d > 0 {
		return d
	}
	return defaultRequestTimeout
}
