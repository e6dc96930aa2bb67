// Package unix implements the remoting transport over Unix domain sockets. Brokers and
// name servers only speak TCP, the Unix transport is used to run a local responder
// next to a client (tests and the CLI serve command).
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners and accepts connections
package unix
