// Package dedupe tracks idempotency keys of submitted segmentation requests.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 10000

// Deduper maps request keys to the run they started.
type Deduper interface {
	// Claim records key for runID unless it is already known.
	// It returns the run id that owns key and whether key was already claimed.
	Claim(ctx context.Context, key, runID string) (string, bool)

	// Release forgets key when runID still owns it, so the request can be retried,
	// e.g. after queue backpressure.
	Release(ctx context.Context, key, runID string)

	// Replace hands key from oldRunID to newRunID. It reports false when key is no longer
	// owned by oldRunID.
	Replace(ctx context.Context, key, oldRunID, newRunID string) bool

	Size() int
}

type entry struct {
	key   string
	runID string
}

// inMemoryDeduper keeps at most maxSize keys and evicts the oldest claim first.
// maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // front is the oldest claim
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.index = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, runID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		return el.Value.(*entry).runID, true
	}

	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.index[key] = d.order.PushBack(&entry{key: key, runID: runID})
	return runID, false
}

func (d *inMemoryDeduper) Release(_ context.Context, key, runID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok && el.Value.(*entry).runID == runID {
		d.order.Remove(el)
		delete(d.index, key)
	}
}

func (d *inMemoryDeduper) Replace(_ context.Context, key, oldRunID, newRunID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.index[key]
	if !ok || el.Value.(*entry).runID != oldRunID {
		return false
	}
	el.Value.(*entry).runID = newRunID
	d.order.MoveToBack(el)
	return true
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.index, front.Value.(*entry).key)
}
