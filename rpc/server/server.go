package server

import (
	"fmt"
	"net"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("responder")

// NewResponder creates a responder answering requests with the given adapters.
// Codes served by more than one adapter go to the last one.
//
// Usage:
//
//	nameServer := server.NewNameServerAdapter()
//	nameServer.SetRoute("TopicTest", data)
//
//	t, _ := tcp.NewTCPServerTransport(config)
//	r := server.NewResponder(t, nameServer)
//	if err := r.Serve(config); err != nil {
//		panic(err)
//	}
func NewResponder(t transport.IRemotingServer, adapters ...IRequestAdapter) *Responder {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	r := &Responder{
		transport: t,
		adapters:  xsync.NewMapOf[int16, IRequestAdapter](),
	}
	for _, adapter := range adapters {
		r.Register(adapter)
	}
	t.RegisterHandler(r.handle)
	return r
}

// Responder dispatches the requests received by a remoting server to adapters
// by request code. Unknown codes are answered with REQUEST_CODE_NOT_SUPPORTED.
type Responder struct {
	transport transport.IRemotingServer
	adapters  *xsync.MapOf[int16, IRequestAdapter]
}

// Register adds an adapter, it may be called while serving
func (r *Responder) Register(adapter IRequestAdapter) {
	for _, code := range adapter.Codes() {
		r.adapters.Store(code, adapter)
	}
}

// Serve listens on config.Transport.Endpoint until Close is called
func (r *Responder) Serve(config common.ServerConfig) error {
	Logger.Infof("Starting responder")
	Logger.Infof(config.String())
	return r.transport.Listen(config)
}

// ServeListener serves an existing listener until Close is called
func (r *Responder) ServeListener(listener net.Listener) error {
	return r.transport.Serve(listener)
}

// Close stops the underlying server transport
func (r *Responder) Close() error {
	return r.transport.Close()
}

func (r *Responder) handle(req *common.Command) *common.Command {
	adapter, ok := r.adapters.Load(req.Header.Code)
	if !ok {
		Logger.Debugf("No adapter for request code %d", req.Header.Code)
		return common.NewResponse(req, common.ResRequestCodeNotSupported,
			fmt.Sprintf("request type %d not supported", req.Header.Code))
	}
	return adapter.Handle(req)
}
