package message

import (
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Property Keys
// --------------------------------------------------------------------------

const (
	PropertyKeys                           = "KEYS"
	PropertyTags                           = "TAGS"
	PropertyWaitStoreMsgOK                 = "WAIT"
	PropertyDelayTimeLevel                 = "DELAY"
	PropertyRetryTopic                     = "RETRY_TOPIC"
	PropertyRealTopic                      = "REAL_TOPIC"
	PropertyRealQueueID                    = "REAL_QID"
	PropertyTransactionPrepared            = "TRAN_MSG"
	PropertyProducerGroup                  = "PGROUP"
	PropertyMinOffset                      = "MIN_OFFSET"
	PropertyMaxOffset                      = "MAX_OFFSET"
	PropertyBuyerID                        = "BUYER_ID"
	PropertyOriginMessageID                = "ORIGIN_MESSAGE_ID"
	PropertyTransferFlag                   = "TRANSFER_FLAG"
	PropertyCorrectionFlag                 = "CORRECTION_FLAG"
	PropertyMQ2Flag                        = "MQ2_FLAG"
	PropertyReconsumeTime                  = "RECONSUME_TIME"
	PropertyMsgRegion                      = "MSG_REGION"
	PropertyTraceSwitch                    = "TRACE_ON"
	PropertyUniqClientMessageIDKey         = "UNIQ_KEY"
	PropertyMaxReconsumeTimes              = "MAX_RECONSUME_TIMES"
	PropertyTransactionPreparedQueueOffset = "TRAN_PREPARED_QUEUE_OFFSET"
	PropertyTransactionCheckTimes          = "TRANSACTION_CHECK_TIMES"
	PropertyCheckImmunityTimeInSeconds     = "CHECK_IMMUNITY_TIME_IN_SECONDS"
	PropertyShardingKey                    = "__SHARDINGKEY"

	// KeySeparator separates multiple keys in the KEYS property
	KeySeparator = " "

	nameValueSeparator = '\x01'
	propertySeparator  = '\x02'
)

// --------------------------------------------------------------------------
// Sys Flags
// --------------------------------------------------------------------------

// SysFlag is the bit set sent as sysFlag with a send request
type SysFlag int32

const (
	SysFlagCompressed              SysFlag = 0x1
	SysFlagMultiTags               SysFlag = 0x2
	SysFlagTransactionNotType      SysFlag = 0x0
	SysFlagTransactionPreparedType SysFlag = 0x1 << 2
	SysFlagTransactionCommitType   SysFlag = 0x2 << 2
	SysFlagTransactionRollbackType SysFlag = 0x3 << 2
)

// Has reports whether all bits of f are set
func (s SysFlag) Has(f SysFlag) bool {
	return s&f == f
}

// --------------------------------------------------------------------------
// Message
// --------------------------------------------------------------------------

// Message is an outgoing message
type Message struct {
	Topic      string
	Flag       int32
	Body       []byte
	Properties map[string]string
	// Queue is the queue the message was explicitly assigned to, it is used by the manual selector
	Queue *MessageQueue
	Batch bool
}

// NewMessage creates a message with the common properties set.
// Empty tags or keys are not stored.
func NewMessage(topic string, body []byte, tags string, keys ...string) *Message {
	m := &Message{
		Topic:      topic,
		Body:       body,
		Properties: make(map[string]string),
	}
	if tags != "" {
		m.Properties[PropertyTags] = tags
	}
	m.SetKeys(keys...)
	m.SetWaitStoreMsgOK(true)
	return m
}

// GetProperty returns the value of a property and whether it is set
func (m *Message) GetProperty(name string) (string, bool) {
	if m.Properties == nil {
		return "", false
	}
	v, ok := m.Properties[name]
	return v, ok
}

// SetProperty sets a property, overwriting an old value
func (m *Message) SetProperty(name, value string) {
	if m.Properties == nil {
		m.Properties = make(map[string]string)
	}
	m.Properties[name] = value
}

// Tags returns the tags of the message or "" if none are set
func (m *Message) Tags() string {
	v, _ := m.GetProperty(PropertyTags)
	return v
}

// Keys returns the keys of the message
func (m *Message) Keys() []string {
	v, ok := m.GetProperty(PropertyKeys)
	if !ok || v == "" {
		return nil
	}
	return strings.Split(v, KeySeparator)
}

// SetKeys stores the given keys, empty keys are skipped
func (m *Message) SetKeys(keys ...string) {
	nonEmpty := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			nonEmpty = append(nonEmpty, k)
		}
	}
	if len(nonEmpty) == 0 {
		return
	}
	m.SetProperty(PropertyKeys, strings.Join(nonEmpty, KeySeparator))
}

// ShardingKey returns the sharding key used by the hash selector
func (m *Message) ShardingKey() (string, bool) {
	v, ok := m.GetProperty(PropertyShardingKey)
	if v == "" {
		return "", false
	}
	return v, ok
}

// SetShardingKey sets the sharding key
func (m *Message) SetShardingKey(key string) {
	m.SetProperty(PropertyShardingKey, key)
}

// SetWaitStoreMsgOK sets whether the broker should answer only after the message is stored
func (m *Message) SetWaitStoreMsgOK(wait bool) {
	if wait {
		m.SetProperty(PropertyWaitStoreMsgOK, "true")
	} else {
		m.SetProperty(PropertyWaitStoreMsgOK, "false")
	}
}

// SetDelayTimeLevel sets the delay level of the message
func (m *Message) SetDelayTimeLevel(level int) {
	m.SetProperty(PropertyDelayTimeLevel, strconv.Itoa(level))
}

// IsTransactionPrepared reports whether the message is a prepared transaction message
func (m *Message) IsTransactionPrepared() bool {
	v, _ := m.GetProperty(PropertyTransactionPrepared)
	return v == "true"
}

// DumpProperties encodes the properties in the property string format
func (m *Message) DumpProperties() string {
	return MarshalProperties(m.Properties)
}

// --------------------------------------------------------------------------
// Property String Codec
// --------------------------------------------------------------------------

// MarshalProperties encodes properties as name\x01value\x02 pairs.
// The pairs are written in map order, the broker does not rely on any order.
func MarshalProperties(properties map[string]string) string {
	if len(properties) == 0 {
		return ""
	}

	var sb strings.Builder
	for name, value := range properties {
		sb.WriteString(name)
		sb.WriteByte(nameValueSeparator)
		sb.WriteString(value)
		sb.WriteByte(propertySeparator)
	}
	return sb.String()
}

// UnmarshalProperties decodes a property string.
// Pairs without a name/value separator are ignored.
func UnmarshalProperties(s string) map[string]string {
	properties := make(map[string]string)
	for _, pair := range strings.Split(s, string(propertySeparator)) {
		idx := strings.IndexByte(pair, nameValueSeparator)
		if idx < 0 {
			continue
		}
		properties[pair[:idx]] = pair[idx+1:]
	}
	return properties
}
