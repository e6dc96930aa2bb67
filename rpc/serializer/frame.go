package serializer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/ValentinKolb/rmq/rpc/common"
)

// MaxFrameSize is the largest accepted value of a frame's length field
const MaxFrameSize = 16 << 20 // 16 MiB

// A frame has the format:
//   - 4 bytes: total length (i32, big endian), counts everything after this field
//   - 4 bytes: codec tag (high byte) | header length (low 24 bits)
//   - N bytes: header, encoded with the tagged codec
//   - M bytes: body, M = total length - 4 - N
const (
	lengthFieldSize = 4
	headerWordSize  = 4
	maxHeaderLength = 0xFFFFFF
)

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// EncodeFrame encodes a command into a single buffer
func EncodeFrame(cmd *common.Command, codec IHeaderSerializer) ([]byte, error) {
	prefix, header, err := encodePrefix(cmd, codec)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, len(prefix)+len(header)+len(cmd.Body))
	frame = append(frame, prefix...)
	frame = append(frame, header...)
	frame = append(frame, cmd.Body...)
	return frame, nil
}

// WriteFrame encodes a command and writes it to w. Prefix, header and body are
// handed to w as net.Buffers, which uses a single writev for connections.
func WriteFrame(w io.Writer, cmd *common.Command, codec IHeaderSerializer) error {
	prefix, header, err := encodePrefix(cmd, codec)
	if err != nil {
		return err
	}

	b := net.Buffers{prefix, header, cmd.Body}
	_, err = b.WriteTo(w)
	return err
}

// encodePrefix serializes the header and builds the 8 byte frame prefix
func encodePrefix(cmd *common.Command, codec IHeaderSerializer) ([]byte, []byte, error) {
	header, err := codec.Serialize(&cmd.Header)
	if err != nil {
		return nil, nil, err
	}
	if len(header) > maxHeaderLength {
		return nil, nil, fmt.Errorf("%w: header of %d bytes", common.ErrFrameTooLarge, len(header))
	}

	total := headerWordSize + len(header) + len(cmd.Body)
	if total > MaxFrameSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", common.ErrFrameTooLarge, total)
	}

	prefix := make([]byte, lengthFieldSize+headerWordSize)
	binary.BigEndian.PutUint32(prefix[0:4], uint32(total))
	binary.BigEndian.PutUint32(prefix[4:8], uint32(codec.Type())<<24|uint32(len(header))&maxHeaderLength)
	return prefix, header, nil
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// DecodeFrame decodes one complete frame, including its length field.
// Bytes after the frame are ignored.
func DecodeFrame(data []byte) (*common.Command, error) {
	if len(data) < lengthFieldSize {
		return nil, fmt.Errorf("%w: data too short for frame length", common.ErrTruncatedFrame)
	}
	total, err := checkTotalLength(data[:lengthFieldSize])
	if err != nil {
		return nil, err
	}

	data = data[lengthFieldSize:]
	if len(data) < total {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", common.ErrTruncatedFrame, total, len(data))
	}
	return decodeContent(data[:total])
}

// ReadFrame reads one frame from r. A clean end of stream before the first byte
// of a frame is returned as io.EOF, an end of stream inside a frame as ErrTruncatedFrame.
func ReadFrame(r io.Reader) (*common.Command, error) {
	var lengthBuf [lengthFieldSize]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %w", common.ErrTruncatedFrame, err)
		}
		return nil, err
	}

	total, err := checkTotalLength(lengthBuf[:])
	if err != nil {
		return nil, err
	}

	content := make([]byte, total)
	if _, err := io.ReadFull(r, content); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %w", common.ErrTruncatedFrame, err)
		}
		return nil, err
	}
	return decodeContent(content)
}

// checkTotalLength validates the length field of a frame
func checkTotalLength(b []byte) (int, error) {
	total := int32(binary.BigEndian.Uint32(b))
	if total < 0 || total > MaxFrameSize {
		return 0, fmt.Errorf("%w: length field %d", common.ErrFrameTooLarge, total)
	}
	if total < headerWordSize {
		return 0, fmt.Errorf("%w: length field %d is smaller than the header length word", common.ErrInvalidHeader, total)
	}
	return int(total), nil
}

// decodeContent decodes everything after the length field
func decodeContent(content []byte) (*common.Command, error) {
	word := binary.BigEndian.Uint32(content[:headerWordSize])
	codecType := CodecType(word >> 24)
	headerLen := int(word & maxHeaderLength)

	content = content[headerWordSize:]
	if headerLen > len(content) {
		return nil, fmt.Errorf("%w: header length %d exceeds frame length %d", common.ErrInvalidHeader, headerLen, len(content))
	}

	codec, err := ForType(codecType)
	if err != nil {
		return nil, err
	}

	cmd := &common.Command{}
	if err := codec.Deserialize(content[:headerLen], &cmd.Header); err != nil {
		return nil, err
	}

	if bodyLen := len(content) - headerLen; bodyLen > 0 {
		cmd.Body = make([]byte, bodyLen)
		copy(cmd.Body, content[headerLen:])
	}
	return cmd, nil
}
