// Package common provides the protocol model and utilities shared by the
// remoting client, the serializers and the name server resolver.
//
// The package focuses on:
//   - The remoting command model (Command, Header, LanguageCode)
//   - Request and response codes and the ext field headers of common requests
//   - Error kinds of the remoting layer
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger facade
//
// Key Components:
//
//   - Command: header plus opaque body. The header carries the operation code,
//     the correlation id (Opaque) and a flag whose bit 0 marks responses and bit 1
//     oneway requests. NewRequest builds a request from any ExtFieldsWriter,
//     NewResponse copies the opaque of a request.
//
//   - Errors: sentinel errors for connection, frame and route failures plus the
//     typed TopicNotExistError and ResponseError. All of them work with errors.Is
//     and errors.As.
//
//   - ClientConfig: timeouts, name server source, header codec, credentials for
//     request signing and socket options.
//
//   - Logger: every package logs through logger.GetLogger(name); InitLoggers
//     installs the "LEVEL | name | message" formatter and sets the level.
package common
