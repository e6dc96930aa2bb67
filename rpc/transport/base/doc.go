// Package base provides the connection multiplexer and the responder server of the
// remoting protocol independent of the specific network protocol (TCP, Unix sockets, etc.).
// It serves as a base layer that is extended with protocol-specific connectors.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Keeps at most one connection per remote address. Concurrent
//     callers for an address that is not connected yet share a single connect attempt,
//     a failed attempt is removed from the table so later calls try again.
//
//   - Connection: One socket with a writer goroutine draining a lock free outbound
//     queue in FIFO order and a reader goroutine completing pending requests by opaque
//     id. When the socket fails every pending request is completed with
//     common.ErrDisconnected. Requests whose context expires remove their pending entry.
//
//   - serverTransport: Accepts connections and passes every request to the registered
//     handler using a bounded number of workers per connection. Responses carry the
//     opaque of their request.
//
// Requests are signed with HMAC-SHA1 when credentials are configured (see CalculateSignature).
//
// Thread Safety:
//
//	All public methods are thread-safe.
package base
