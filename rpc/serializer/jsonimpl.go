package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/ValentinKolb/rmq/rpc/common"
)

// NewJSONSerializer creates a new header serializer using json encoding (tag 0)
func NewJSONSerializer() IHeaderSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IHeaderSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// jsonHeader is the wire form of a header. remark and extFields are pointers
// so absent fields can be told apart from empty ones.
type jsonHeader struct {
	Code      int16               `json:"code"`
	Language  common.LanguageCode `json:"language"`
	Version   int16               `json:"version"`
	Opaque    int32               `json:"opaque"`
	Flag      int32               `json:"flag"`
	Remark    *string             `json:"remark,omitempty"`
	ExtFields map[string]string   `json:"extFields"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IHeaderSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Type() CodecType {
	return CodecJSON
}

func (j jsonSerializerImpl) Serialize(h *common.Header) ([]byte, error) {
	wire := jsonHeader{
		Code:      h.Code,
		Language:  h.Language,
		Version:   h.Version,
		Opaque:    h.Opaque,
		Flag:      h.Flag,
		ExtFields: h.ExtFields,
	}
	if h.Remark != "" {
		wire.Remark = &h.Remark
	}
	if wire.ExtFields == nil {
		wire.ExtFields = map[string]string{}
	}
	return json.Marshal(wire)
}

func (j jsonSerializerImpl) Deserialize(b []byte, h *common.Header) error {
	if !utf8.Valid(b) {
		return common.ErrInvalidUTF8
	}
	if trimmed := bytes.TrimSpace(b); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: empty json header", common.ErrInvalidHeader)
	}

	var wire jsonHeader
	if err := json.Unmarshal(b, &wire); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidHeader, err)
	}

	*h = common.Header{
		Code:      wire.Code,
		Language:  wire.Language,
		Version:   wire.Version,
		Opaque:    wire.Opaque,
		Flag:      wire.Flag,
		ExtFields: wire.ExtFields,
	}
	if wire.Remark != nil {
		h.Remark = *wire.Remark
	}
	if h.ExtFields == nil {
		h.ExtFields = make(map[string]string)
	}
	return nil
}
