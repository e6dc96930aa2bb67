package common

import (
	"fmt"
	"strconv"
)

// ExtFieldsWriter is implemented by every request header. The returned map
// becomes the ext fields of the request command.
type ExtFieldsWriter interface {
	ToExtFields() map[string]string
}

// --------------------------------------------------------------------------
// Request Headers
// --------------------------------------------------------------------------

// GetRouteInfoRequestHeader is the header of ReqGetRouteInfoByTopic
type GetRouteInfoRequestHeader struct {
	Topic string
}

func (h GetRouteInfoRequestHeader) ToExtFields() map[string]string {
	return map[string]string{"topic": h.Topic}
}

// GetConsumerListByGroupRequestHeader is the header of ReqGetConsumerListByGroup
type GetConsumerListByGroupRequestHeader struct {
	ConsumerGroup string
}

func (h GetConsumerListByGroupRequestHeader) ToExtFields() map[string]string {
	return map[string]string{"consumerGroup": h.ConsumerGroup}
}

// QueryConsumerOffsetRequestHeader is the header of ReqQueryConsumerOffset
type QueryConsumerOffsetRequestHeader struct {
	ConsumerGroup string
	Topic         string
	QueueID       int32
}

func (h QueryConsumerOffsetRequestHeader) ToExtFields() map[string]string {
	return map[string]string{
		"consumerGroup": h.ConsumerGroup,
		"topic":         h.Topic,
		"queueId":       strconv.FormatInt(int64(h.QueueID), 10),
	}
}

// UpdateConsumerOffsetRequestHeader is the header of ReqUpdateConsumerOffset
type UpdateConsumerOffsetRequestHeader struct {
	ConsumerGroup string
	Topic         string
	QueueID       int32
	CommitOffset  int64
}

func (h UpdateConsumerOffsetRequestHeader) ToExtFields() map[string]string {
	return map[string]string{
		"consumerGroup": h.ConsumerGroup,
		"topic":         h.Topic,
		"queueId":       strconv.FormatInt(int64(h.QueueID), 10),
		"commitOffset":  strconv.FormatInt(h.CommitOffset, 10),
	}
}

// GetMaxOffsetRequestHeader is the header of ReqGetMaxOffset
type GetMaxOffsetRequestHeader struct {
	Topic   string
	QueueID int32
}

func (h GetMaxOffsetRequestHeader) ToExtFields() map[string]string {
	return map[string]string{
		"topic":   h.Topic,
		"queueId": strconv.FormatInt(int64(h.QueueID), 10),
	}
}

// SendMessageRequestHeader is the header of ReqSendMessage.
// V2 returns the single letter form used with ReqSendMessageV2 and ReqSendBatchMessage.
type SendMessageRequestHeader struct {
	ProducerGroup         string
	Topic                 string
	DefaultTopic          string
	DefaultTopicQueueNums int32
	QueueID               int32
	SysFlag               int32
	BornTimestamp         int64
	Flag                  int32
	Properties            string
	ReconsumeTimes        int32
	UnitMode              bool
	MaxReconsumeTimes     int32
	Batch                 bool
}

func (h SendMessageRequestHeader) ToExtFields() map[string]string {
	return map[string]string{
		"producerGroup":         h.ProducerGroup,
		"topic":                 h.Topic,
		"defaultTopic":          h.DefaultTopic,
		"defaultTopicQueueNums": strconv.FormatInt(int64(h.DefaultTopicQueueNums), 10),
		"queueId":               strconv.FormatInt(int64(h.QueueID), 10),
		"sysFlag":               strconv.FormatInt(int64(h.SysFlag), 10),
		"bornTimestamp":         strconv.FormatInt(h.BornTimestamp, 10),
		"flag":                  strconv.FormatInt(int64(h.Flag), 10),
		"properties":            h.Properties,
		"reconsumeTimes":        strconv.FormatInt(int64(h.ReconsumeTimes), 10),
		"unitMode":              strconv.FormatBool(h.UnitMode),
		"maxReconsumeTimes":     strconv.FormatInt(int64(h.MaxReconsumeTimes), 10),
		"batch":                 strconv.FormatBool(h.Batch),
	}
}

// V2 returns the compact variant of the header
func (h SendMessageRequestHeader) V2() SendMessageRequestV2Header {
	return SendMessageRequestV2Header(h)
}

// SendMessageRequestV2Header carries the same fields as SendMessageRequestHeader
// but is written with single letter keys
type SendMessageRequestV2Header SendMessageRequestHeader

func (h SendMessageRequestV2Header) ToExtFields() map[string]string {
	return map[string]string{
		"a": h.ProducerGroup,
		"b": h.Topic,
		"c": h.DefaultTopic,
		"d": strconv.FormatInt(int64(h.DefaultTopicQueueNums), 10),
		"e": strconv.FormatInt(int64(h.QueueID), 10),
		"f": strconv.FormatInt(int64(h.SysFlag), 10),
		"g": strconv.FormatInt(h.BornTimestamp, 10),
		"h": strconv.FormatInt(int64(h.Flag), 10),
		"i": h.Properties,
		"j": strconv.FormatInt(int64(h.ReconsumeTimes), 10),
		"k": strconv.FormatBool(h.UnitMode),
		"l": strconv.FormatInt(int64(h.MaxReconsumeTimes), 10),
		"m": strconv.FormatBool(h.Batch),
	}
}

// PullMessageRequestHeader is the header of ReqPullMessage
type PullMessageRequestHeader struct {
	ConsumerGroup        string
	Topic                string
	QueueID              int32
	QueueOffset          int64
	MaxMsgNums           int32
	SysFlag              int32
	CommitOffset         int64
	SuspendTimeoutMillis int64
	SubExpression        string
	SubVersion           int64
	ExpressionType       string
}

func (h PullMessageRequestHeader) ToExtFields() map[string]string {
	return map[string]string{
		"consumerGroup":        h.ConsumerGroup,
		"topic":                h.Topic,
		"queueId":              strconv.FormatInt(int64(h.QueueID), 10),
		"queueOffset":          strconv.FormatInt(h.QueueOffset, 10),
		"maxMsgNums":           strconv.FormatInt(int64(h.MaxMsgNums), 10),
		"sysFlag":              strconv.FormatInt(int64(h.SysFlag), 10),
		"commitOffset":         strconv.FormatInt(h.CommitOffset, 10),
		"suspendTimeoutMillis": strconv.FormatInt(h.SuspendTimeoutMillis, 10),
		"subscription":         h.SubExpression,
		"subVersion":           strconv.FormatInt(h.SubVersion, 10),
		"expressionType":       h.ExpressionType,
	}
}

// --------------------------------------------------------------------------
// Response Headers
// --------------------------------------------------------------------------

// SendMessageResponseHeader is parsed from the ext fields of a send response
type SendMessageResponseHeader struct {
	MsgID         string
	QueueID       int32
	QueueOffset   int64
	TransactionID string
	MsgRegion     string
	TraceOn       bool
}

// ParseSendMessageResponseHeader reads a send response header.
// Missing numeric fields are zero, malformed ones are an error.
func ParseSendMessageResponseHeader(ext map[string]string) (SendMessageResponseHeader, error) {
	h := SendMessageResponseHeader{
		MsgID:         ext["msgId"],
		TransactionID: ext["transactionId"],
		MsgRegion:     ext["MSG_REGION"],
		TraceOn:       ext["TRACE_ON"] == "true",
	}
	queueID, err := intField(ext, "queueId", 32)
	if err != nil {
		return h, err
	}
	h.QueueID = int32(queueID)
	if h.QueueOffset, err = intField(ext, "queueOffset", 64); err != nil {
		return h, err
	}
	return h, nil
}

// PullMessageResponseHeader is parsed from the ext fields of a pull response
type PullMessageResponseHeader struct {
	SuggestWhichBrokerID int64
	NextBeginOffset      int64
	MinOffset            int64
	MaxOffset            int64
}

// ParsePullMessageResponseHeader reads a pull response header
func ParsePullMessageResponseHeader(ext map[string]string) (PullMessageResponseHeader, error) {
	var h PullMessageResponseHeader
	var err error
	if h.SuggestWhichBrokerID, err = intField(ext, "suggestWhichBrokerId", 64); err != nil {
		return h, err
	}
	if h.NextBeginOffset, err = intField(ext, "nextBeginOffset", 64); err != nil {
		return h, err
	}
	if h.MinOffset, err = intField(ext, "minOffset", 64); err != nil {
		return h, err
	}
	if h.MaxOffset, err = intField(ext, "maxOffset", 64); err != nil {
		return h, err
	}
	return h, nil
}

// ParseOffsetResponseHeader reads the "offset" field of a query consumer
// offset or get max offset response
func ParseOffsetResponseHeader(ext map[string]string) (int64, error) {
	return intField(ext, "offset", 64)
}

// intField parses an optional integer ext field
func intField(ext map[string]string, key string, bits int) (int64, error) {
	v, ok := ext[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: field %s: %v", ErrInvalidHeader, key, err)
	}
	return n, nil
}
