// Package server implements a responder for the remoting protocol: a server
// that answers name server and broker requests from in memory state. It backs
// the "rmq serve" command and the integration tests of the client packages.
//
// Key Components:
//
//   - IRequestAdapter: Interface of a request handler serving a fixed set of
//     request codes.
//
//   - NameServerAdapter: Answers route queries (GET_ROUTEINFO_BY_TOPIC) from a
//     route table, unknown topics get TOPIC_NOT_EXIST.
//
//   - BrokerAdapter: Answers consumer list, consumer offset and max offset
//     requests of one broker.
//
//   - Responder: Dispatches requests of a transport.IRemotingServer to the
//     registered adapters by request code.
//
// Usage Example:
//
//	nameServer := server.NewNameServerAdapter()
//	nameServer.SetRoute("TopicTest", data)
//
//	broker := server.NewBrokerAdapter("broker-a")
//	broker.SetConsumers("group", []string{"10.0.0.5@1"})
//
//	t, _ := tcp.NewTCPServerTransport(config)
//	r := server.NewResponder(t, nameServer, broker)
//	if err := r.Serve(config); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Adapters and the responder are safe for concurrent use. Routes, consumers
//	and offsets may be changed while serving.
package server
