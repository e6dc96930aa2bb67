package transport

import (
	"context"
	"io"
	"net"

	"github.com/ValentinKolb/rmq/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one request received by a server transport.
// The returned command is sent back with the request's opaque and the response
// bit set. A nil response sends nothing.
type ServerHandleFunc func(req *common.Command) (res *common.Command)

// IRemotingServer is the interface for the server side of the remoting protocol.
// It is used as responder (name server or broker stand-in) in tests and by the CLI.
type IRemotingServer interface {
	// RegisterHandler registers the handler called for every received request
	RegisterHandler(handler ServerHandleFunc)
	// Listen creates a listener for config.Transport.Endpoint and serves it until Close is called
	Listen(config common.ServerConfig) error
	// Serve accepts connections on an existing listener until Close is called
	Serve(listener net.Listener) error
	// WriteMetrics writes the server metrics in Prometheus text format
	WriteMetrics(w io.Writer)
	// Close stops accepting connections and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// ProcessorFunc handles a command the server sent on its own (not a response).
// The returned command, if not nil, is written back as response with the same opaque.
type ProcessorFunc func(addr string, req *common.Command) (res *common.Command)

// IConnection is one multiplexed connection to a remote address
type IConnection interface {
	// ID returns the unique id of the connection
	ID() string
	// Addr returns the remote address the connection was opened for
	Addr() string
	// Invoke sends a request and waits for the matching response
	Invoke(ctx context.Context, cmd *common.Command) (*common.Command, error)
	// InvokeOneway sends a request without waiting for a response
	InvokeOneway(ctx context.Context, cmd *common.Command) error
	// Done is closed once the connection is closed
	Done() <-chan struct{}
	// Close closes the connection, pending requests fail with common.ErrDisconnected
	Close() error
}

// IRemotingClient is the interface of the connection multiplexer.
// All methods are safe for concurrent use.
type IRemotingClient interface {
	// GetOrCreateConnection returns the connection for addr, establishing it if needed.
	// Concurrent callers for the same address share one connect attempt.
	GetOrCreateConnection(ctx context.Context, addr string) (IConnection, error)
	// Invoke sends a request to addr and waits for its response.
	// The request's opaque is assigned by the connection.
	Invoke(ctx context.Context, addr string, cmd *common.Command) (*common.Command, error)
	// InvokeOneway marks the request as oneway and hands it to the write path of addr
	InvokeOneway(ctx context.Context, addr string, cmd *common.Command) error
	// RegisterProcessor registers a handler for server initiated commands with the given code
	RegisterProcessor(code int16, fn ProcessorFunc)
	// WriteMetrics writes the client metrics in Prometheus text format
	WriteMetrics(w io.Writer)
	// Shutdown closes all connections. Calling it more than once is safe.
	Shutdown() error
}
