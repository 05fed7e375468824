package list

import (
	"github.com/feynman-go/lockchain/mutex"
	"go.uber.org/atomic"
)

// node is one link of the chain. mu guards value and next of this node only.
type node struct {
	value int
	next  *node
	mu    mutex.Mutex
}

// store hands out nodes and counts the live ones. capacity <= 0 means unbounded.
type store struct {
	capacity int64
	live     atomic.Int64
}

func (s *store) alloc(value int, next *node) (*node, error) {
	if n := s.live.Inc(); s.capacity > 0 && n > s.capacity {
		s.live.Dec()
		return nil, ErrAllocation
	}
	return &node{value: value, next: next}, nil
}

// free destroys a node that is no longer reachable from the head.
func (s *store) free(n *node) {
	if n.mu.IsHeld() {
		panic("free of locked node")
	}
	n.next = nil
	s.live.Dec()
}

func (s *store) len() int {
	return int(s.live.Load())
}
