// Package transport defines the interfaces of the remoting layer. It provides a
// common contract for the connection multiplexer used by clients and the
// server used as responder.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Correlating concurrent requests and responses on one connection
//   - Enabling multiple transport implementations (TCP, Unix sockets)
//
// Key Components:
//
//   - IRemotingClient: Interface for the client side multiplexer. It keeps one
//     connection per remote address and lets any number of goroutines invoke
//     requests on it concurrently.
//
//   - IConnection: One established connection with its pending request table.
//
//   - IRemotingServer: Interface for server side implementations that receive
//     requests and hand them to a ServerHandleFunc.
//
//   - ProcessorFunc: Function type for commands a server sends without being asked
//     (for example NotifyConsumerIdsChanged).
package transport
