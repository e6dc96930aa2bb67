package selector

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"

	"github.com/ValentinKolb/rmq/lib/message"
	"github.com/ValentinKolb/rmq/lib/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("selector")

// IQueueSelector picks the queue an outgoing message is sent to
type IQueueSelector interface {
	// Select returns one of mqs for msg. It returns false if no queue can be chosen.
	Select(msg *message.Message, mqs []message.MessageQueue) (message.MessageQueue, bool)
}

// --------------------------------------------------------------------------
// Manual
// --------------------------------------------------------------------------

type manualSelector struct{}

// NewManualSelector returns a selector using the queue attached to the message
func NewManualSelector() IQueueSelector {
	return manualSelector{}
}

func (manualSelector) Select(msg *message.Message, _ []message.MessageQueue) (message.MessageQueue, bool) {
	if msg == nil || msg.Queue == nil {
		return message.MessageQueue{}, false
	}
	return *msg.Queue, true
}

// --------------------------------------------------------------------------
// Random
// --------------------------------------------------------------------------

type randomSelector struct{}

// NewRandomSelector returns a selector choosing a queue uniformly at random
func NewRandomSelector() IQueueSelector {
	return randomSelector{}
}

func (randomSelector) Select(_ *message.Message, mqs []message.MessageQueue) (message.MessageQueue, bool) {
	if len(mqs) == 0 {
		return message.MessageQueue{}, false
	}
	return mqs[rand.Intn(len(mqs))], true
}

// --------------------------------------------------------------------------
// Round Robin
// --------------------------------------------------------------------------

type roundRobinSelector struct {
	counters *xsync.MapOf[string, *atomic.Uint64]
}

// NewRoundRobinSelector returns a selector cycling through the queues of each topic.
// The counter of a topic is incremented before use, so the first message of a
// topic goes to queue 1 (mod the queue count).
func NewRoundRobinSelector() IQueueSelector {
	return &roundRobinSelector{counters: xsync.NewMapOf[string, *atomic.Uint64]()}
}

func (s *roundRobinSelector) Select(msg *message.Message, mqs []message.MessageQueue) (message.MessageQueue, bool) {
	if len(mqs) == 0 {
		return message.MessageQueue{}, false
	}

	topic := ""
	if msg != nil {
		topic = msg.Topic
	}
	counter, _ := s.counters.LoadOrCompute(topic, func() *atomic.Uint64 { return new(atomic.Uint64) })

	// wraps after 2^64 messages
	return mqs[counter.Add(1)%uint64(len(mqs))], true
}

// --------------------------------------------------------------------------
// Hash
// --------------------------------------------------------------------------

type hashSelector struct {
	random IQueueSelector
}

// NewHashSelector returns a selector mapping the sharding key of a message to a
// queue using FNV-1a. Messages without sharding key are sent to a random queue.
func NewHashSelector() IQueueSelector {
	return &hashSelector{random: NewRandomSelector()}
}

func (s *hashSelector) Select(msg *message.Message, mqs []message.MessageQueue) (message.MessageQueue, bool) {
	if len(mqs) == 0 {
		return message.MessageQueue{}, false
	}

	key, ok := "", false
	if msg != nil {
		key, ok = msg.ShardingKey()
	}
	if !ok {
		return s.random.Select(msg, mqs)
	}
	return mqs[util.KeyIndex(key, len(mqs))], true
}

// --------------------------------------------------------------------------
// Lookup
// --------------------------------------------------------------------------

// Names of the selectors accepted by ParseSelector
const (
	NameManual     = "manual"
	NameRandom     = "random"
	NameRoundRobin = "roundrobin"
	NameHash       = "hash"
)

// ParseSelector returns a new selector by name (case insensitive)
func ParseSelector(name string) (IQueueSelector, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case NameManual:
		return NewManualSelector(), nil
	case NameRandom:
		return NewRandomSelector(), nil
	case NameRoundRobin, "":
		return NewRoundRobinSelector(), nil
	case NameHash:
		return NewHashSelector(), nil
	default:
		Logger.Debugf("Unknown selector %q requested", name)
		return nil, fmt.Errorf("unknown selector %q. must be one of %s, %s, %s, %s", name, NameManual, NameRandom, NameRoundRobin, NameHash)
	}
}
