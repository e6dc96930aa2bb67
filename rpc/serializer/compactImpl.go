package serializer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/ValentinKolb/rmq/rpc/common"
)

// NewCompactSerializer creates a new header serializer using the compact
// binary format (tag 1). The header's own language is written.
func NewCompactSerializer() IHeaderSerializer {
	return &compactSerializerImpl{}
}

// NewCompactSerializerWithLanguage creates a compact serializer that always
// writes lang as language byte, regardless of the header's language
func NewCompactSerializerWithLanguage(lang common.LanguageCode) IHeaderSerializer {
	return &compactSerializerImpl{forceLanguage: true, language: lang}
}

// compactSerializerImpl implements IHeaderSerializer using the layout
//
//	code:i16 language:u8 version:i16 opaque:i32 flag:i32
//	remark_len:i32 remark
//	ext_len:i32 {key_len:i16 key val_len:i32 val}*
type compactSerializerImpl struct {
	forceLanguage bool
	language      common.LanguageCode
}

// size of the fixed part: code, language, version, opaque, flag
const compactFixedSize = 2 + 1 + 2 + 4 + 4

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IHeaderSerializer)
// --------------------------------------------------------------------------

func (c compactSerializerImpl) Type() CodecType {
	return CodecCompact
}

func (c compactSerializerImpl) Serialize(h *common.Header) ([]byte, error) {
	// sorted keys keep the output deterministic
	keys := make([]string, 0, len(h.ExtFields))
	for k := range h.ExtFields {
		if len(k) > math.MaxInt16 {
			return nil, fmt.Errorf("%w: ext field key too long (%d bytes)", common.ErrInvalidHeader, len(k))
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	extLen := c.extSize(h.ExtFields)
	result := make([]byte, compactFixedSize+4+len(h.Remark)+4+extLen)

	lang := h.Language
	if c.forceLanguage {
		lang = c.language
	}

	binary.BigEndian.PutUint16(result[0:2], uint16(h.Code))
	result[2] = byte(lang)
	binary.BigEndian.PutUint16(result[3:5], uint16(h.Version))
	binary.BigEndian.PutUint32(result[5:9], uint32(h.Opaque))
	binary.BigEndian.PutUint32(result[9:13], uint32(h.Flag))
	pos := compactFixedSize

	// Write remark
	binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(h.Remark)))
	pos += 4
	pos += copy(result[pos:], h.Remark)

	// Write ext fields
	binary.BigEndian.PutUint32(result[pos:pos+4], uint32(extLen))
	pos += 4
	for _, k := range keys {
		v := h.ExtFields[k]

		binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(k)))
		pos += 2
		pos += copy(result[pos:], k)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(v)))
		pos += 4
		pos += copy(result[pos:], v)
	}

	return result, nil
}

func (c compactSerializerImpl) Deserialize(data []byte, h *common.Header) error {
	if len(data) < compactFixedSize {
		return fmt.Errorf("%w: data too short for fixed header fields", common.ErrInvalidHeader)
	}

	*h = common.Header{
		Code:     int16(binary.BigEndian.Uint16(data[0:2])),
		Language: common.LanguageCode(data[2]),
		Version:  int16(binary.BigEndian.Uint16(data[3:5])),
		Opaque:   int32(binary.BigEndian.Uint32(data[5:9])),
		Flag:     int32(binary.BigEndian.Uint32(data[9:13])),
	}
	pos := compactFixedSize

	// Read remark, a header that ends here has neither remark nor ext fields
	if pos < len(data) {
		remark, next, err := readString32(data, pos, "remark")
		if err != nil {
			return err
		}
		h.Remark = remark
		pos = next
	}

	h.ExtFields = make(map[string]string)
	if pos >= len(data) {
		return nil
	}

	// Read ext fields
	if pos+4 > len(data) {
		return fmt.Errorf("%w: data too short for ext fields length", common.ErrInvalidHeader)
	}
	extLen := int64(int32(binary.BigEndian.Uint32(data[pos : pos+4])))
	pos += 4
	if extLen < 0 || int64(pos)+extLen > int64(len(data)) {
		return fmt.Errorf("%w: data too short for ext fields (%d bytes)", common.ErrInvalidHeader, extLen)
	}

	end := pos + int(extLen)
	for pos < end {
		if pos+2 > end {
			return fmt.Errorf("%w: data too short for ext key length", common.ErrInvalidHeader)
		}
		keyLen := int(int16(binary.BigEndian.Uint16(data[pos : pos+2])))
		pos += 2
		if keyLen < 0 || pos+keyLen > end {
			return fmt.Errorf("%w: data too short for ext key", common.ErrInvalidHeader)
		}
		key := data[pos : pos+keyLen]
		pos += keyLen

		value, next, err := readString32(data[:end], pos, "ext value")
		if err != nil {
			return err
		}
		pos = next

		if !utf8.Valid(key) {
			return fmt.Errorf("%w: ext key", common.ErrInvalidUTF8)
		}
		h.ExtFields[string(key)] = value
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// extSize calculates the size of the ext fields section without its length prefix
func (c compactSerializerImpl) extSize(ext map[string]string) int {
	size := 0
	for k, v := range ext {
		size += 2 + len(k) + 4 + len(v)
	}
	return size
}

// readString32 reads a string prefixed with an i32 length starting at pos
func readString32(data []byte, pos int, field string) (string, int, error) {
	if pos+4 > len(data) {
		return "", pos, fmt.Errorf("%w: data too short for %s length", common.ErrInvalidHeader, field)
	}
	n := int64(int32(binary.BigEndian.Uint32(data[pos : pos+4])))
	pos += 4
	if n < 0 || int64(pos)+n > int64(len(data)) {
		return "", pos, fmt.Errorf("%w: data too short for %s", common.ErrInvalidHeader, field)
	}
	b := data[pos : pos+int(n)]
	if !utf8.Valid(b) {
		return "", pos, fmt.Errorf("%w: %s", common.ErrInvalidUTF8, field)
	}
	return string(b), pos + int(n), nil
}
