package persistence

import (
	"container/heap"
	"encoding/base64"
	"fmt"
	"time"
)

const extModule = "[ext]"

// RegisterBuiltins adds codecs for the handful of non-JSON-native Go types
// the asset store actually persists: timestamps, durations, sets, raw byte
// buffers, and priority queues. Call this once on a freshly built Registry
// before using it.
func (r *Registry) RegisterBuiltins() {
	r.Register(time.Time{}, &Codec{
		ModulePath: extModule,
		ClassName:  "Timestamp",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			t := v.(time.Time)
			return map[string]interface{}{"unix_nano": t.UnixNano()}, nil
		},
		Decode: func(params map[string]interface{}, version string) (interface{}, error) {
			nanos, err := asInt64(params["unix_nano"])
			if err != nil {
				return nil, err
			}
			return time.Unix(0, nanos).UTC(), nil
		},
	})

	r.Register(time.Duration(0), &Codec{
		ModulePath: extModule,
		ClassName:  "Duration",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			d := v.(time.Duration)
			return map[string]interface{}{"seconds": d.Seconds()}, nil
		},
		Decode: func(params map[string]interface{}, version string) (interface{}, error) {
			secs, ok := params["seconds"].(float64)
			if !ok {
				return nil, fmt.Errorf("%w: duration missing seconds", ErrSerialization)
			}
			return time.Duration(secs * float64(time.Second)), nil
		},
	})

	r.Register(Set{}, &Codec{
		ModulePath: extModule,
		ClassName:  "Set",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			s := v.(Set)
			elems := make([]interface{}, 0, len(s))
			for e := range s {
				elems = append(elems, e)
			}
			return map[string]interface{}{"elements": elems}, nil
		},
		Decode: func(params map[string]interface{}, version string) (interface{}, error) {
			raw, _ := params["elements"].([]interface{})
			s := make(Set, len(raw))
			for _, e := range raw {
				s[e] = struct{}{}
			}
			return s, nil
		},
	})

	r.Register([]byte{}, &Codec{
		ModulePath: extModule,
		ClassName:  "Bytes",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			b := v.([]byte)
			return map[string]interface{}{"data": base64.URLEncoding.EncodeToString(b)}, nil
		},
		Decode: func(params map[string]interface{}, version string) (interface{}, error) {
			s, _ := params["data"].(string)
			return base64.URLEncoding.DecodeString(s)
		},
	})

	r.Register(PriorityQueue{}, &Codec{
		ModulePath: extModule,
		ClassName:  "PriorityQueue",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			pq := v.(PriorityQueue)
			entries := make([]interface{}, len(pq.items))
			for i, it := range pq.items {
				entries[i] = map[string]interface{}{"priority": it.priority, "value": it.value}
			}
			return map[string]interface{}{"queue": entries}, nil
		},
		Decode: func(params map[string]interface{}, version string) (interface{}, error) {
			raw, _ := params["queue"].([]interface{})
			pq := NewPriorityQueue()
			for _, entry := range raw {
				m, ok := entry.(map[string]interface{})
				if !ok {
					continue
				}
				priority, err := asInt64(m["priority"])
				if err != nil {
					return nil, err
				}
				pq.Push(int(priority), m["value"])
			}
			return *pq, nil
		},
	})
}

func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: expected number, got %T", ErrSerialization, v)
	}
}

// Set is a Go equivalent of the source system's built-in set: unordered,
// unique elements, keyed by their own value for O(1) membership tests.
type Set map[interface{}]struct{}

// NewSet returns a Set containing elems.
func NewSet(elems ...interface{}) Set {
	s := make(Set, len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Add inserts v into s.
func (s Set) Add(v interface{}) { s[v] = struct{}{} }

// Contains reports whether v is in s.
func (s Set) Contains(v interface{}) bool {
	_, ok := s[v]
	return ok
}

// pqItem is one (priority, value) entry of a PriorityQueue.
type pqItem struct {
	priority int
	value    interface{}
}

type pqHeap []pqItem

func (h pqHeap) Len() int            { return len(h) }
func (h pqHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h pqHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pqHeap) Push(x interface{}) { *h = append(*h, x.(pqItem)) }
func (h *pqHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PriorityQueue is a minimal min-heap priority queue (lowest priority pops
// first) with a registered codec, so queued values persist like any other.
type PriorityQueue struct {
	items pqHeap
}

// NewPriorityQueue returns an empty PriorityQueue.
func NewPriorityQueue() *PriorityQueue {
	pq := &PriorityQueue{}
	heap.Init(&pq.items)
	return pq
}

// Push inserts value at the given priority (lower pops first).
func (pq *PriorityQueue) Push(priority int, value interface{}) {
	heap.Push(&pq.items, pqItem{priority: priority, value: value})
}

// Pop removes and returns the lowest-priority value. ok is false on an
// empty queue.
func (pq *PriorityQueue) Pop() (value interface{}, priority int, ok bool) {
	if len(pq.items) == 0 {
		return nil, 0, false
	}
	item := heap.Pop(&pq.items).(pqItem)
	return item.value, item.priority, true
}

// Len reports the number of queued entries.
func (pq *PriorityQueue) Len() int { return len(pq.items) }
