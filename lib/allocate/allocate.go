package allocate

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/rmq/lib/message"
	"github.com/ValentinKolb/rmq/lib/util"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("allocate")

// Strategy names
const (
	NameAveragely         = "AVG"
	NameAveragelyByCircle = "AVG_BY_CIRCLE"
	NameConfig            = "CONFIG"
	NameMachineRoom       = "MACHINE_ROOM"
	NameConsistentHash    = "CONSISTENT_HASH"
)

// IAllocateStrategy partitions the queues of a topic across the members of a consumer group.
//
// Allocate is a pure function of its arguments. It returns an empty allocation if
// currentID is empty, mqs is empty, ids is empty or currentID is not in ids.
type IAllocateStrategy interface {
	Allocate(group, currentID string, mqs []message.MessageQueue, ids []string) []message.MessageQueue
	Name() string
}

// memberIndex checks the common preconditions and returns the index of currentID in ids
func memberIndex(strategy, group, currentID string, mqs []message.MessageQueue, ids []string) (int, bool) {
	if currentID == "" || len(mqs) == 0 || len(ids) == 0 {
		Logger.Debugf("%s: nothing to allocate for group %s (consumer %q, %d queues, %d consumers)",
			strategy, group, currentID, len(mqs), len(ids))
		return -1, false
	}

	idx := util.IndexOf(ids, currentID)
	if idx < 0 {
		Logger.Warningf("%s: consumer %s is not a member of group %s %v", strategy, currentID, group, ids)
		return -1, false
	}
	return idx, true
}

// --------------------------------------------------------------------------
// Averagely
// --------------------------------------------------------------------------

type averagely struct{}

// NewAveragely assigns each member a contiguous block of queues. The first
// len(mqs) % len(ids) members get one queue more than the others.
func NewAveragely() IAllocateStrategy { return averagely{} }

func (averagely) Name() string { return NameAveragely }

func (averagely) Allocate(group, currentID string, mqs []message.MessageQueue, ids []string) []message.MessageQueue {
	idx, ok := memberIndex(NameAveragely, group, currentID, mqs, ids)
	if !ok {
		return []message.MessageQueue{}
	}

	n, m := len(mqs), len(ids)
	base, rem := n/m, n%m

	count := base
	if idx < rem {
		count++
	}
	start := idx*base + min(idx, rem)

	result := make([]message.MessageQueue, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, mqs[(start+i)%n])
	}
	return result
}

// --------------------------------------------------------------------------
// Averagely By Circle
// --------------------------------------------------------------------------

type averagelyByCircle struct{}

// NewAveragelyByCircle assigns the queue at position p to the member at p % len(ids)
func NewAveragelyByCircle() IAllocateStrategy { return averagelyByCircle{} }

func (averagelyByCircle) Name() string { return NameAveragelyByCircle }

func (averagelyByCircle) Allocate(group, currentID string, mqs []message.MessageQueue, ids []string) []message.MessageQueue {
	idx, ok := memberIndex(NameAveragelyByCircle, group, currentID, mqs, ids)
	if !ok {
		return []message.MessageQueue{}
	}

	result := make([]message.MessageQueue, 0, len(mqs)/len(ids)+1)
	for p := idx; p < len(mqs); p += len(ids) {
		result = append(result, mqs[p])
	}
	return result
}

// --------------------------------------------------------------------------
// Config
// --------------------------------------------------------------------------

type byConfig struct {
	mqs []message.MessageQueue
}

// NewByConfig returns a copy of the configured queues to every valid member
func NewByConfig(mqs []message.MessageQueue) IAllocateStrategy {
	return &byConfig{mqs: append([]message.MessageQueue(nil), mqs...)}
}

func (s *byConfig) Name() string { return NameConfig }

func (s *byConfig) Allocate(group, currentID string, mqs []message.MessageQueue, ids []string) []message.MessageQueue {
	if _, ok := memberIndex(NameConfig, group, currentID, mqs, ids); !ok {
		return []message.MessageQueue{}
	}
	return append(make([]message.MessageQueue, 0, len(s.mqs)), s.mqs...)
}

// --------------------------------------------------------------------------
// Machine Room
// --------------------------------------------------------------------------

type byMachineRoom struct {
	idcs map[string]struct{}
}

// NewByMachineRoom only allocates queues of brokers named "idc@broker" whose idc is
// in idcs. The filtered queues are split evenly, the remainder goes one per member.
func NewByMachineRoom(idcs []string) IAllocateStrategy {
	s := &byMachineRoom{idcs: make(map[string]struct{}, len(idcs))}
	for _, idc := range idcs {
		s.idcs[idc] = struct{}{}
	}
	return s
}

func (s *byMachineRoom) Name() string { return NameMachineRoom }

func (s *byMachineRoom) Allocate(group, currentID string, mqs []message.MessageQueue, ids []string) []message.MessageQueue {
	idx, ok := memberIndex(NameMachineRoom, group, currentID, mqs, ids)
	if !ok {
		return []message.MessageQueue{}
	}

	filtered := make([]message.MessageQueue, 0, len(mqs))
	for _, mq := range mqs {
		idc, _, found := strings.Cut(mq.BrokerName, "@")
		if !found {
			continue
		}
		if _, allowed := s.idcs[idc]; allowed {
			filtered = append(filtered, mq)
		}
	}

	m := len(ids)
	base, rem := len(filtered)/m, len(filtered)%m

	result := make([]message.MessageQueue, 0, base+1)
	result = append(result, filtered[idx*base:(idx+1)*base]...)
	if idx < rem {
		result = append(result, filtered[base*m+idx])
	}
	return result
}

// --------------------------------------------------------------------------
// Consistent Hash
// --------------------------------------------------------------------------

type consistentHash struct {
	virtualNodes int
}

// NewConsistentHash places the members on a hash ring with virtualNodes points
// each (util.DefaultVirtualNodes if <= 0). A queue belongs to the member its
// textual identity maps to.
func NewConsistentHash(virtualNodes int) IAllocateStrategy {
	if virtualNodes <= 0 {
		virtualNodes = util.DefaultVirtualNodes
	}
	return &consistentHash{virtualNodes: virtualNodes}
}

func (s *consistentHash) Name() string { return NameConsistentHash }

func (s *consistentHash) Allocate(group, currentID string, mqs []message.MessageQueue, ids []string) []message.MessageQueue {
	if _, ok := memberIndex(NameConsistentHash, group, currentID, mqs, ids); !ok {
		return []message.MessageQueue{}
	}

	ring := util.NewHashRing(ids, s.virtualNodes)

	result := make([]message.MessageQueue, 0, len(mqs)/len(ids)+1)
	for _, mq := range mqs {
		if owner, ok := ring.Get(mq.String()); ok && owner == currentID {
			result = append(result, mq)
		}
	}
	return result
}

// --------------------------------------------------------------------------
// Lookup
// --------------------------------------------------------------------------

// ParseStrategy returns a strategy by name (case insensitive).
// The config strategy uses mqs, the machine room strategy uses idcs.
func ParseStrategy(name string, mqs []message.MessageQueue, idcs []string) (IAllocateStrategy, error) {
	switch strings.ToUpper(strings.ReplaceAll(name, "-", "_")) {
	case NameAveragely, "":
		return NewAveragely(), nil
	case NameAveragelyByCircle:
		return NewAveragelyByCircle(), nil
	case NameConfig:
		return NewByConfig(mqs), nil
	case NameMachineRoom:
		return NewByMachineRoom(idcs), nil
	case NameConsistentHash:
		return NewConsistentHash(util.DefaultVirtualNodes), nil
	default:
		return nil, fmt.Errorf("unknown allocate strategy %q. must be one of %s, %s, %s, %s, %s",
			name, NameAveragely, NameAveragelyByCircle, NameConfig, NameMachineRoom, NameConsistentHash)
	}
}
