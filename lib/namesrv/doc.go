// Package namesrv resolves topic routes from the name server tier.
//
// The address list comes from an IAddressProvider (static list, NAMESRV_ADDR,
// an HTTP address server or a passthrough with fallback). NameServers queries the
// servers round robin and fails over to the next one on connection errors, while
// a topic-not-exist or error response from a server ends the query.
//
// Successful updates are cached: the route per topic and the broker addresses per
// broker name. Route payloads are repaired before decoding because name servers
// send maps with bare integer keys.
package namesrv
