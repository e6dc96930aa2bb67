// Package rpc provides the remoting layer of the RocketMQ client. It carries
// request/response commands between this process and name servers or brokers.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures used across the remoting layer, including
//     the Command protocol, request and response codes, headers, errors,
//     configuration structures and logging.
//
//   - serializer: The frame codec with the JSON and the compact header encoding.
//
//   - transport: The connection multiplexer and server abstractions with TCP and
//     Unix socket implementations.
//
//   - client: The broker client for consumer lists and consumer offsets.
//
//   - server: A responder answering name server and broker requests from
//     in memory state, used by the CLI and in tests.
package rpc
