package message

import "fmt"

// MessageQueue identifies one queue of a topic on one broker.
// It is a value type: two queues are equal if all fields are equal, so it can
// be used as map key.
type MessageQueue struct {
	Topic      string `json:"topic"`
	BrokerName string `json:"brokerName"`
	QueueID    int32  `json:"queueId"`
}

// String returns the stable textual identity of the queue
func (mq MessageQueue) String() string {
	return fmt.Sprintf("MessageQueue [topic=%s, brokerName=%s, queueId=%d]", mq.Topic, mq.BrokerName, mq.QueueID)
}

// Less orders queues by topic, broker name and queue id
func (mq MessageQueue) Less(other MessageQueue) bool {
	if mq.Topic != other.Topic {
		return mq.Topic < other.Topic
	}
	if mq.BrokerName != other.BrokerName {
		return mq.BrokerName < other.BrokerName
	}
	return mq.QueueID < other.QueueID
}
