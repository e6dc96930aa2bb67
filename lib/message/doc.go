// Package message contains the client side message model.
//
// Key Components:
//
//   - MessageQueue: the comparable identity of one queue of a topic hosted by a
//     broker. Its String() form is stable and used as lookup key by the
//     consistent hash allocation strategy.
//
//   - Message: an outgoing message with its user properties (tags, keys,
//     sharding key, ...). Properties travel to the broker in the property string
//     format: name and value separated by \x01, pairs separated by \x02.
//
//   - SysFlag: the bit set sent as sysFlag in send requests (compression,
//     transaction state).
package message
