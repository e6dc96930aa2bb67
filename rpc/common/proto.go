package common

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Command Structure
// --------------------------------------------------------------------------

// DefaultVersion is the protocol version announced by this client (V4_9_x)
const DefaultVersion int16 = 431

const (
	flagResponse int32 = 1 << 0
	flagOneway   int32 = 1 << 1
)

// Header is the header of a remoting command.
// All per request parameters travel in ExtFields.
type Header struct {
	Code      int16             `json:"code"`
	Language  LanguageCode      `json:"language"`
	Version   int16             `json:"version"`
	Opaque    int32             `json:"opaque"`
	Flag      int32             `json:"flag"`
	Remark    string            `json:"remark"`
	ExtFields map[string]string `json:"extFields"`
}

// Command is the unit exchanged with name servers and brokers
type Command struct {
	Header Header
	Body   []byte
}

// --------------------------------------------------------------------------
// Command Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a request command. The ext fields of the given header
// (may be nil) become the command's ext fields.
func NewRequest(code int16, header ExtFieldsWriter, body []byte) *Command {
	cmd := &Command{
		Header: Header{
			Code:      code,
			Language:  LanguageGo,
			Version:   DefaultVersion,
			ExtFields: make(map[string]string),
		},
		Body: body,
	}
	if header != nil {
		for k, v := range header.ToExtFields() {
			cmd.Header.ExtFields[k] = v
		}
	}
	return cmd
}

// NewResponse creates the response for req. The opaque of the request is
// copied and the response bit is set.
func NewResponse(req *Command, code int16, remark string) *Command {
	return &Command{
		Header: Header{
			Code:      code,
			Language:  LanguageGo,
			Version:   DefaultVersion,
			Opaque:    req.Header.Opaque,
			Flag:      flagResponse,
			Remark:    remark,
			ExtFields: make(map[string]string),
		},
	}
}

// IsResponse reports whether bit 0 of the flag is set
func (c *Command) IsResponse() bool {
	return c.Header.Flag&flagResponse == flagResponse
}

// MarkResponse sets the response bit
func (c *Command) MarkResponse() {
	c.Header.Flag |= flagResponse
}

// IsOneway reports whether bit 1 of the flag is set
func (c *Command) IsOneway() bool {
	return c.Header.Flag&flagOneway == flagOneway
}

// MarkOneway sets the oneway bit
func (c *Command) MarkOneway() {
	c.Header.Flag |= flagOneway
}

// ExtField returns an ext field, "" if it is not set
func (c *Command) ExtField(key string) string {
	return c.Header.ExtFields[key]
}

// SetExtField sets an ext field
func (c *Command) SetExtField(key, value string) {
	if c.Header.ExtFields == nil {
		c.Header.ExtFields = make(map[string]string)
	}
	c.Header.ExtFields[key] = value
}

// String returns a short description used in log messages
func (c *Command) String() string {
	kind := "request"
	if c.IsResponse() {
		kind = "response"
	}
	return fmt.Sprintf("%s(code=%d, opaque=%d, flag=%d, remark=%q, ext=%d, body=%d bytes)",
		kind, c.Header.Code, c.Header.Opaque, c.Header.Flag, c.Header.Remark, len(c.Header.ExtFields), len(c.Body))
}

// --------------------------------------------------------------------------
// Language Codes
// --------------------------------------------------------------------------

// LanguageCode identifies the client implementation
type LanguageCode uint8

const (
	LanguageJava LanguageCode = iota
	LanguageCPP
	LanguageDotNet
	LanguagePython
	LanguageDelphi
	LanguageErlang
	LanguageRuby
	LanguageOther
	LanguageHTTP
	LanguageGo
	LanguagePHP
	LanguageOMS
)

var languageNames = [...]string{
	LanguageJava:   "JAVA",
	LanguageCPP:    "CPP",
	LanguageDotNet: "DOTNET",
	LanguagePython: "PYTHON",
	LanguageDelphi: "DELPHI",
	LanguageErlang: "ERLANG",
	LanguageRuby:   "RUBY",
	LanguageOther:  "OTHER",
	LanguageHTTP:   "HTTP",
	LanguageGo:     "GO",
	LanguagePHP:    "PHP",
	LanguageOMS:    "OMS",
}

// String returns the wire name of the language
func (l LanguageCode) String() string {
	if int(l) < len(languageNames) {
		return languageNames[l]
	}
	return "OTHER"
}

// ParseLanguageCode converts a wire name to a LanguageCode
func ParseLanguageCode(s string) (LanguageCode, error) {
	for i, name := range languageNames {
		if name == s {
			return LanguageCode(i), nil
		}
	}
	return LanguageOther, fmt.Errorf("unknown language: %s", s)
}

// MarshalJSON implements the json.Marshaller interface for LanguageCode.
// The language is written as its name.
func (l LanguageCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for LanguageCode.
// Both the name ("GO") and the ordinal (9) are accepted.
func (l *LanguageCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		code, err := ParseLanguageCode(s)
		if err != nil {
			return err
		}
		*l = code
		return nil
	}

	n, err := strconv.ParseUint(string(data), 10, 8)
	if err != nil {
		return fmt.Errorf("invalid language: %s", data)
	}
	*l = LanguageCode(n)
	return nil
}
