package server

import (
	"github.com/ValentinKolb/rmq/rpc/common"
)

// IRequestAdapter answers the requests of a fixed set of request codes.
// Handle is called concurrently and must not block.
type IRequestAdapter interface {
	// Codes returns the request codes handled by the adapter
	Codes() []int16
	// Handle handles a request and returns the response.
	// The opaque and the response bit are set by the transport.
	Handle(req *common.Command) (res *common.Command)
}
