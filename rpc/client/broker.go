package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/rmq/lib/message"
	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// IBrokerResolver maps broker names to master addresses (see namesrv.NameServers)
type IBrokerResolver interface {
	FindBrokerAddrByName(brokerName string) (string, bool)
}

// BrokerClient sends the consumer side administrative requests to brokers
type BrokerClient struct {
	transport transport.IRemotingClient
	resolver  IBrokerResolver
}

// NewBrokerClient creates a broker client sending over t and resolving broker names with r
func NewBrokerClient(t transport.IRemotingClient, r IBrokerResolver) *BrokerClient {
	return &BrokerClient{transport: t, resolver: r}
}

// consumerListBody is the body of a consumer list response
type consumerListBody struct {
	ConsumerIDList []string `json:"consumerIdList"`
}

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

// GetConsumerListByGroup returns the ids of the consumers of group known to the broker at addr
func (c *BrokerClient) GetConsumerListByGroup(ctx context.Context, addr, group string) ([]string, error) {
	req := common.NewRequest(common.ReqGetConsumerListByGroup, common.GetConsumerListByGroupRequestHeader{ConsumerGroup: group}, nil)
	res, err := invokeRequest(ctx, c.transport, addr, req)
	if err != nil {
		return nil, err
	}
	if len(res.Body) == 0 {
		return []string{}, nil
	}

	body := consumerListBody{}
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to decode consumer list of %s: %w", group, err)
	}
	if body.ConsumerIDList == nil {
		return []string{}, nil
	}
	return body.ConsumerIDList, nil
}

// QueryConsumerOffset returns the committed offset of group for mq
func (c *BrokerClient) QueryConsumerOffset(ctx context.Context, group string, mq message.MessageQueue) (int64, error) {
	addr, err := c.brokerAddr(mq)
	if err != nil {
		return 0, err
	}

	header := common.QueryConsumerOffsetRequestHeader{ConsumerGroup: group, Topic: mq.Topic, QueueID: mq.QueueID}
	res, err := invokeRequest(ctx, c.transport, addr, common.NewRequest(common.ReqQueryConsumerOffset, header, nil))
	if err != nil {
		return 0, err
	}
	return common.ParseOffsetResponseHeader(res.Header.ExtFields)
}

// UpdateConsumerOffset commits offset for group and mq without waiting for the broker
func (c *BrokerClient) UpdateConsumerOffset(ctx context.Context, group string, mq message.MessageQueue, offset int64) error {
	addr, err := c.brokerAddr(mq)
	if err != nil {
		return err
	}

	header := common.UpdateConsumerOffsetRequestHeader{ConsumerGroup: group, Topic: mq.Topic, QueueID: mq.QueueID, CommitOffset: offset}
	return c.transport.InvokeOneway(ctx, addr, common.NewRequest(common.ReqUpdateConsumerOffset, header, nil))
}

// GetMaxOffset returns the max offset of mq
func (c *BrokerClient) GetMaxOffset(ctx context.Context, mq message.MessageQueue) (int64, error) {
	addr, err := c.brokerAddr(mq)
	if err != nil {
		return 0, err
	}

	header := common.GetMaxOffsetRequestHeader{Topic: mq.Topic, QueueID: mq.QueueID}
	res, err := invokeRequest(ctx, c.transport, addr, common.NewRequest(common.ReqGetMaxOffset, header, nil))
	if err != nil {
		return 0, err
	}
	return common.ParseOffsetResponseHeader(res.Header.ExtFields)
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func (c *BrokerClient) brokerAddr(mq message.MessageQueue) (string, error) {
	addr, ok := c.resolver.FindBrokerAddrByName(mq.BrokerName)
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrBrokerNotFound, mq.BrokerName)
	}
	return addr, nil
}

// invokeRequest sends req to addr and turns non success responses into a *common.ResponseError
func invokeRequest(ctx context.Context, t transport.IRemotingClient, addr string, req *common.Command) (*common.Command, error) {
	res, err := t.Invoke(ctx, addr, req)
	if err != nil {
		return nil, err
	}

	if res.Header.Code != common.ResSuccess {
		Logger.Debugf("Request code %d to %s failed with %s", req.Header.Code, addr, res)
		return nil, common.NewResponseError(res)
	}
	return res, nil
}
