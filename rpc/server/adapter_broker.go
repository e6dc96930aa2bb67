package server

import (
	"encoding/json"
	"strconv"

	"github.com/ValentinKolb/rmq/lib/message"
	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

type offsetKey struct {
	group string
	mq    message.MessageQueue
}

// BrokerAdapter answers the consumer side administrative requests of a broker:
// consumer lists, committed offsets and max offsets
type BrokerAdapter struct {
	brokerName string
	consumers  *xsync.MapOf[string, []string]
	committed  *xsync.MapOf[offsetKey, int64]
	maxOffsets *xsync.MapOf[message.MessageQueue, int64]
}

// NewBrokerAdapter creates an adapter for the broker named brokerName
func NewBrokerAdapter(brokerName string) *BrokerAdapter {
	return &BrokerAdapter{
		brokerName: brokerName,
		consumers:  xsync.NewMapOf[string, []string](),
		committed:  xsync.NewMapOf[offsetKey, int64](),
		maxOffsets: xsync.NewMapOf[message.MessageQueue, int64](),
	}
}

// SetConsumers sets the consumer ids of group
func (a *BrokerAdapter) SetConsumers(group string, ids []string) {
	a.consumers.Store(group, append([]string(nil), ids...))
}

// SetMaxOffset sets the max offset of queue queueID of topic
func (a *BrokerAdapter) SetMaxOffset(topic string, queueID int32, offset int64) {
	a.maxOffsets.Store(a.queue(topic, queueID), offset)
}

// CommittedOffset returns the offset committed by group for queue queueID of topic
func (a *BrokerAdapter) CommittedOffset(group, topic string, queueID int32) (int64, bool) {
	return a.committed.Load(offsetKey{group: group, mq: a.queue(topic, queueID)})
}

func (a *BrokerAdapter) Codes() []int16 {
	return []int16{
		common.ReqGetConsumerListByGroup,
		common.ReqQueryConsumerOffset,
		common.ReqUpdateConsumerOffset,
		common.ReqGetMaxOffset,
	}
}

func (a *BrokerAdapter) Handle(req *common.Command) *common.Command {
	switch req.Header.Code {
	case common.ReqGetConsumerListByGroup:
		group := req.ExtField("consumerGroup")
		ids, ok := a.consumers.Load(group)
		if !ok {
			return common.NewResponse(req, common.ResSystemError, "no consumer for this group, "+group)
		}
		body, err := json.Marshal(map[string][]string{"consumerIdList": ids})
		if err != nil {
			return common.NewResponse(req, common.ResSystemError, err.Error())
		}
		res := common.NewResponse(req, common.ResSuccess, "")
		res.Body = body
		return res

	case common.ReqQueryConsumerOffset:
		mq, err := a.queueFromRequest(req)
		if err != nil {
			return common.NewResponse(req, common.ResSystemError, err.Error())
		}
		offset, ok := a.committed.Load(offsetKey{group: req.ExtField("consumerGroup"), mq: mq})
		if !ok {
			return common.NewResponse(req, common.ResQueryNotFound, "Not found, maybe this group consumer boot first")
		}
		return offsetResponse(req, offset)

	case common.ReqUpdateConsumerOffset:
		mq, err := a.queueFromRequest(req)
		if err != nil {
			return common.NewResponse(req, common.ResSystemError, err.Error())
		}
		offset, err := strconv.ParseInt(req.ExtField("commitOffset"), 10, 64)
		if err != nil {
			return common.NewResponse(req, common.ResSystemError, err.Error())
		}
		a.committed.Store(offsetKey{group: req.ExtField("consumerGroup"), mq: mq}, offset)
		return common.NewResponse(req, common.ResSuccess, "")

	case common.ReqGetMaxOffset:
		mq, err := a.queueFromRequest(req)
		if err != nil {
			return common.NewResponse(req, common.ResSystemError, err.Error())
		}
		offset, _ := a.maxOffsets.Load(mq)
		return offsetResponse(req, offset)

	default:
		return common.NewResponse(req, common.ResRequestCodeNotSupported, "")
	}
}

func (a *BrokerAdapter) queue(topic string, queueID int32) message.MessageQueue {
	return message.MessageQueue{Topic: topic, BrokerName: a.brokerName, QueueID: queueID}
}

func (a *BrokerAdapter) queueFromRequest(req *common.Command) (message.MessageQueue, error) {
	queueID, err := strconv.ParseInt(req.ExtField("queueId"), 10, 32)
	if err != nil {
		return message.MessageQueue{}, err
	}
	return a.queue(req.ExtField("topic"), int32(queueID)), nil
}

func offsetResponse(req *common.Command, offset int64) *common.Command {
	res := common.NewResponse(req, common.ResSuccess, "")
	res.SetExtField("offset", strconv.FormatInt(offset, 10))
	return res
}
