package util

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// DefaultVirtualNodes is the number of ring positions created per member
// when a ring is built with a non-positive virtual node count
const DefaultVirtualNodes = 10

// HashRing is an immutable consistent hash ring.
// Every member is placed on the ring once per virtual node, a key belongs to
// the first member position clockwise from the key's hash.
type HashRing struct {
	positions []uint64
	owners    map[uint64]string
}

// NewHashRing builds a ring for the given members.
// Duplicate members are only placed once.
func NewHashRing(members []string, virtualNodes int) *HashRing {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}

	r := &HashRing{
		positions: make([]uint64, 0, len(members)*virtualNodes),
		owners:    make(map[uint64]string, len(members)*virtualNodes),
	}

	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if _, ok := seen[member]; ok {
			continue
		}
		seen[member] = struct{}{}

		for i := 0; i < virtualNodes; i++ {
			pos := xxhash.Sum64String(member + "-" + strconv.Itoa(i))
			// on a collision the member that sorts first keeps the position so
			// the ring does not depend on the member order
			if owner, ok := r.owners[pos]; ok {
				if member < owner {
					r.owners[pos] = member
				}
				continue
			}
			r.owners[pos] = member
			r.positions = append(r.positions, pos)
		}
	}

	sort.Slice(r.positions, func(i, j int) bool { return r.positions[i] < r.positions[j] })
	return r
}

// Get returns the member owning key, false if the ring is empty
func (r *HashRing) Get(key string) (string, bool) {
	if len(r.positions) == 0 {
		return "", false
	}

	h := xxhash.Sum64String(key)
	idx := sort.Search(len(r.positions), func(i int) bool { return r.positions[i] >= h })
	if idx == len(r.positions) {
		idx = 0
	}
	return r.owners[r.positions[idx]], true
}

// Size returns the number of positions on the ring
func (r *HashRing) Size() int {
	return len(r.positions)
}
