package symrt

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"
)

// DepSet is an ordered set of input-byte offsets an expression depends on.
// Sets are persistent: Add and Union return new sets sharing structure
// with their inputs, so expression nodes can share dependency sets freely.
type DepSet struct {
	m *immutable.SortedMap
}

// NewDepSet returns a set holding the given offsets.
func NewDepSet(offsets ...uint64) *DepSet {
	m := immutable.NewSortedMap(&uint64Comparer{})
	for _, off := range offsets {
		m = m.Set(off, struct{}{})
	}
	return &DepSet{m: m}
}

// Len returns the number of offsets in the set.
func (s *DepSet) Len() int { return s.m.Len() }

// Empty returns true if the set has no offsets.
func (s *DepSet) Empty() bool { return s.m.Len() == 0 }

// Contains returns true if off is in the set.
func (s *DepSet) Contains(off uint64) bool {
	_, ok := s.m.Get(off)
	return ok
}

// Add returns a set additionally containing off.
func (s *DepSet) Add(off uint64) *DepSet {
	return &DepSet{m: s.m.Set(off, struct{}{})}
}

// Union returns the union of both sets.
func (s *DepSet) Union(other *DepSet) *DepSet {
	if other == nil || other.Empty() {
		return s
	}
	if s.Empty() {
		return other
	}
	// Insert the smaller set into the larger one.
	big, small := s, other
	if big.Len() < small.Len() {
		big, small = small, big
	}
	m := big.m
	itr := small.m.Iterator()
	for !itr.Done() {
		k, _ := itr.Next()
		m = m.Set(k, struct{}{})
	}
	return &DepSet{m: m}
}

// SubsetOf returns true if every offset in s is also in other.
func (s *DepSet) SubsetOf(other *DepSet) bool {
	if s.Len() > other.Len() {
		return false
	}
	itr := s.m.Iterator()
	for !itr.Done() {
		k, _ := itr.Next()
		if _, ok := other.m.Get(k); !ok {
			return false
		}
	}
	return true
}

// Equal returns true if both sets hold exactly the same offsets.
func (s *DepSet) Equal(other *DepSet) bool {
	return s.Len() == other.Len() && s.SubsetOf(other)
}

// Offsets returns the offsets in ascending order.
func (s *DepSet) Offsets() []uint64 {
	offsets := make([]uint64, 0, s.Len())
	itr := s.m.Iterator()
	for !itr.Done() {
		k, _ := itr.Next()
		offsets = append(offsets, k.(uint64))
	}
	return offsets
}

// String returns a string representation of the set.
func (s *DepSet) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, off := range s.Offsets() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d", off)
	}
	sb.WriteByte('}')
	return sb.String()
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b,
// and returns 0 if a is equal to b. Panic if a or b is not a uint64.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
