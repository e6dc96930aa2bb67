// Package cmd implements the command-line interface of rmq. It provides a
// hierarchical command structure for inspecting a RocketMQ deployment through
// the remoting client and for running a local responder.
//
// The package is organized into several subpackages:
//
//   - route: Commands for route queries, broker lookup, consumer lists and offsets
//   - allocate: Commands previewing queue allocation and queue selection
//   - serve: Command starting a name server and broker stand-in
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See rmq -help for a list of all commands.
package cmd
