package fabric

import (
	"sync"

	"github.com/kestrelsys/agentmesh/wire"
)

// priorityList is a bounded, priority-ordered holding area for
// messages awaiting dispatch. Unlike the per-agent ring buffers it is
// not lock-free — it is drained by the single dispatch worker but
// written by every caller of Send/SendPriority/Broadcast, so a mutex
// guards its small critical section, mirroring the teacher's per-tag
// mutex discipline: lock, mutate the slice, unlock, never call a
// handler while holding it.
type priorityList struct {
	mu       sync.Mutex
	items    []*wire.Message
	capacity int
	dropped  uint64
}

func newPriorityList(capacity int) *priorityList {
	if capacity <= 0 {
		capacity = 64
	}
	return &priorityList{capacity: capacity}
}

// push inserts msg, evicting a lower-priority entry if the list is
// full. Eviction prefers the oldest LOW-priority entry; if none
// exists, it evicts the oldest entry with strictly lower priority than
// msg. If neither candidate exists (the list is full of entries at or
// above msg's priority), msg itself is dropped and push returns false.
func (pl *priorityList) push(msg *wire.Message) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if len(pl.items) < pl.capacity {
		pl.items = append(pl.items, msg)
		return true
	}

	if idx := pl.oldestOfPriority(wire.PriorityLow); idx >= 0 {
		pl.items = append(pl.items[:idx], pl.items[idx+1:]...)
		pl.items = append(pl.items, msg)
		return true
	}
	if idx := pl.oldestBelow(msg.Priority); idx >= 0 {
		pl.items = append(pl.items[:idx], pl.items[idx+1:]...)
		pl.items = append(pl.items, msg)
		return true
	}

	pl.dropped++
	return false
}

func (pl *priorityList) oldestOfPriority(p wire.MessagePriority) int {
	for i, m := range pl.items {
		if m.Priority == p {
			return i
		}
	}
	return -1
}

func (pl *priorityList) oldestBelow(p wire.MessagePriority) int {
	for i, m := range pl.items {
		if m.Priority < p {
			return i
		}
	}
	return -1
}

// popHighest removes and returns the highest-priority, oldest-among-equals
// entry, or nil if the list is empty.
func (pl *priorityList) popHighest() *wire.Message {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if len(pl.items) == 0 {
		return nil
	}
	best := 0
	for i, m := range pl.items[1:] {
		if m.Priority > pl.items[best].Priority {
			best = i + 1
		}
	}
	msg := pl.items[best]
	pl.items = append(pl.items[:best], pl.items[best+1:]...)
	return msg
}

func (pl *priorityList) len() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.items)
}

func (pl *priorityList) droppedCount() uint64 {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.dropped
}
