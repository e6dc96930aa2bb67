// Package tcp implements the TCP transport of the remoting protocol. It provides
// concrete implementations of the base package's connector interfaces.
//
// Key Components:
//
//   - clientConnector: dials with the caller's context and applies the socket
//     options of common.TransportConfig (no delay, buffers, keep alive, linger)
//
//   - serverConnector: listens on config.Transport.Endpoint and applies the same
//     options to accepted connections
//
// See the base package for the multiplexing and correlation of requests.
package tcp
