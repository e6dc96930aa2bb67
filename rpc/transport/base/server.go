package base

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/serializer"
	"github.com/ValentinKolb/rmq/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	config    common.ServerConfig
	codec     serializer.IHeaderSerializer
	metrics   *serverMetrics

	handler atomic.Pointer[transport.ServerHandleFunc]

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[net.Conn]struct{}
	closing   atomic.Bool
	wg        sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector, config common.ServerConfig) (transport.IRemotingServer, error) {
	codec, err := serializer.FromName(config.Codec)
	if err != nil {
		return nil, err
	}

	// minimum one worker per connection
	config.MaxWorkersPerConn = max(config.MaxWorkersPerConn, 1)

	return &serverTransport{
		connector: connector,
		config:    config,
		codec:     codec,
		metrics:   newServerMetrics(connector.GetName()),
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRemotingServer)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler.Store(&handler)
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	return t.Serve(listener)
}

func (t *serverTransport) Serve(listener net.Listener) error {
	t.mu.Lock()
	if t.closing.Load() {
		t.mu.Unlock()
		listener.Close()
		return common.ErrShutdown
	}
	t.listeners[listener] = struct{}{}
	t.mu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), t.config.MaxWorkersPerConn)

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}

		if !t.track(conn) {
			conn.Close()
			return nil
		}
		t.metrics.accepted.Inc()

		// Handle the connection in a goroutine
		go t.handleConnection(conn)
	}
}

func (t *serverTransport) WriteMetrics(w io.Writer) {
	t.metrics.set.WritePrometheus(w)
}

func (t *serverTransport) Close() error {
	if !t.closing.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	var errs []error
	for l := range t.listeners {
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	for c := range t.conns {
		c.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// track registers conn for Close, it returns false once the server is closing
func (t *serverTransport) track(conn net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closing.Load() {
		return false
	}
	t.conns[conn] = struct{}{}
	t.wg.Add(1)
	return true
}

func (t *serverTransport) untrack(conn net.Conn) {
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()
	t.wg.Done()
}

// handleConnection handles incoming requests for one connection
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer t.untrack(conn)
	defer conn.Close()

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// Create a semaphore to limit concurrent workers for this connection
	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.config.MaxWorkersPerConn)

	// Create a wait group to wait for all workers to finish
	var wg sync.WaitGroup

	// Create a mutex to protect writes to the connection
	var connMutex sync.Mutex

	// Handler function that processes requests in worker goroutines
	handleResponse := func(req *common.Command) {
		// When done, release the semaphore and mark worker as done
		defer func() {
			<-workerSemaphore // Release semaphore slot
			wg.Done()         // Mark worker as done
		}()

		handler := t.handler.Load()
		if handler == nil {
			t.metrics.dropped.Inc()
			Logger.Warningf("No handler registered, dropping %s", req)
			return
		}

		// Process the request
		start := time.Now()
		res := (*handler)(req)
		t.metrics.handlerTime.Update(time.Since(start).Seconds())
		Logger.Debugf("Processed request code %d with opaque %d took %s", req.Header.Code, req.Header.Opaque, time.Since(start))

		if res == nil || req.IsOneway() {
			return
		}
		res.Header.Opaque = req.Header.Opaque
		res.MarkResponse()

		// Protect writes to the connection with a mutex
		connMutex.Lock()
		defer connMutex.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		// Write the response with the same opaque
		if err := serializer.WriteFrame(conn, res, t.codec); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
		}
	}

	reader := bufio.NewReader(conn)

	// Handle requests in a loop
	for {
		req, err := serializer.ReadFrame(reader)

		// Case EOF: Connection closed by client
		if errors.Is(err, io.EOF) || (err != nil && t.closing.Load()) {
			Logger.Debugf("Connection from %s closed", conn.RemoteAddr())
			break
		}

		// Case error: log and close connection
		if err != nil {
			Logger.Errorf("Error handling request from %s: %v", conn.RemoteAddr(), err)
			break
		}
		t.metrics.requests.Inc()

		// Acquire a slot in the semaphore (blocks if MaxWorkersPerConn is reached)
		workerSemaphore <- struct{}{}
		wg.Add(1)
		go handleResponse(req)
	}

	// Wait for all workers to finish before closing the connection
	wg.Wait()
}
