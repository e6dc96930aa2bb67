// Package serializer implements the wire format of remoting commands: two
// interchangeable header codecs and the length prefixed frame around them.
//
// The package focuses on:
//   - Providing a consistent interface for both header formats
//   - Bit exact framing shared by both codecs
//   - Explicit, distinguishable errors for malformed input (never a panic)
//
// Key Components:
//
//   - IHeaderSerializer: Core interface that both codecs satisfy. Type() returns
//     the tag that is written into every frame so the receiver can pick the
//     matching decoder.
//
//   - jsonSerializerImpl (tag 0): The header as JSON object with the keys code,
//     language, version, opaque, flag, remark and extFields. The language is
//     written as name ("GO") and read from name or ordinal. Human readable and
//     the default of the reference brokers.
//
//   - compactSerializerImpl (tag 1): Fixed size fields followed by length
//     prefixed remark and ext fields. Smaller and faster than JSON.
//
//   - Frame functions: EncodeFrame/WriteFrame and DecodeFrame/ReadFrame. A frame
//     is total_length:i32 | codec:u8 header_length:u24 | header | body, big endian.
//     Frames above MaxFrameSize are rejected before any allocation.
//
// Error classes (see rpc/common): ErrInvalidHeaderCodec, ErrTruncatedFrame,
// ErrInvalidHeader, ErrInvalidUTF8 and ErrFrameTooLarge.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	codec := serializer.NewCompactSerializer()
//	err := serializer.WriteFrame(conn, cmd, codec)
//	// ...
//	res, err := serializer.ReadFrame(conn)
package serializer
