package serializer

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/rmq/rpc/common"
)

// CodecType is the tag stored in the high byte of a frame's header length word
type CodecType byte

const (
	CodecJSON    CodecType = 0
	CodecCompact CodecType = 1
)

// String returns the name of the codec
func (c CodecType) String() string {
	switch c {
	case CodecJSON:
		return "json"
	case CodecCompact:
		return "compact"
	default:
		return fmt.Sprintf("unknown(%d)", byte(c))
	}
}

// IHeaderSerializer is the interface for all header codecs
type IHeaderSerializer interface {
	// Type returns the tag written into the frame for this codec
	Type() CodecType
	// Serialize encodes a header
	// It returns the serialized byte array and an error if any
	Serialize(h *common.Header) ([]byte, error)
	// Deserialize decodes a header into h, all fields of h are overwritten
	// It returns an error if any
	Deserialize(b []byte, h *common.Header) error
}

// decoders is used to dispatch on the codec byte of incoming frames
var decoders = map[CodecType]IHeaderSerializer{
	CodecJSON:    NewJSONSerializer(),
	CodecCompact: NewCompactSerializer(),
}

// ForType returns the decoder for a codec tag
func ForType(t CodecType) (IHeaderSerializer, error) {
	s, ok := decoders[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", common.ErrInvalidHeaderCodec, byte(t))
	}
	return s, nil
}

// FromName returns the serializer for a configured codec name
func FromName(name string) (IHeaderSerializer, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return NewJSONSerializer(), nil
	case "compact", "rocketmq", "binary":
		return NewCompactSerializer(), nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %q. must be one of json, compact", common.ErrInvalidHeaderCodec, name)
	}
}
