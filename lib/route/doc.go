// Package route contains the topology snapshot a name server returns for a topic
// and the views derived from it.
//
// The name server answers a route query with a JSON document that uses bare
// integer map keys for broker ids ({"brokerAddrs":{0:"host:10911"}}). The
// document is repaired (keys are quoted) before it is decoded, see
// ParseTopicRouteData.
//
// Derived views:
//   - SubscribeQueues: one queue per read queue of every readable QueueData
//   - PublishQueues: the write queues of every writable QueueData whose broker has
//     a master, or the fixed layout of the order topic configuration if present
//   - TopicPublishInfo: the publish queues plus the order flag, as producers cache it
package route
