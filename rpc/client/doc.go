// Package client implements the consumer side administrative requests sent to
// brokers on top of a transport.IRemotingClient: the consumer list of a group and
// the committed and max offsets of a queue.
//
// Broker names are resolved to master addresses with an IBrokerResolver, usually
// the namesrv.NameServers instance that cached the route of the topic.
//
// Usage Example:
//
//	remoting, _ := tcp.NewTCPClientTransport(common.DefaultClientConfig())
//	servers, _ := namesrv.New(ctx, namesrv.NewEnvProvider(), remoting)
//	servers.UpdateTopicRouteInfo(ctx, "TopicTest")
//
//	brokers := client.NewBrokerClient(remoting, servers)
//	offset, err := brokers.QueryConsumerOffset(ctx, "group", mq)
//
// Non success responses are returned as *common.ResponseError.
package client
