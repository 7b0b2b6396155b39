// Package dedupe tracks idempotency keys so retried requests apply once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 10_000

// State is what a key's earlier claim tells the new claimant.
type State int

// Key states returned by Claim.
const (
	// StateNew means the key was unseen and the caller now owns it.
	StateNew State = iota
	// StateInFlight means another request owns the key and has not finished.
	StateInFlight
	// StateDone means a request with the key already committed.
	StateDone
)

// Deduper records request keys through their lifecycle: claimed, then
// either committed or unrecorded.
type Deduper interface {
	// Claim atomically records id as in flight if it is unseen and returns
	// the state it had before the call.
	Claim(ctx context.Context, id string) State

	// Commit marks id as completed. Later claims report StateDone.
	Commit(ctx context.Context, id string)

	// Unrecord forgets id so that a failed request can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type entry struct {
	id   string
	done bool
}

// inMemoryDeduper keeps keys in insertion order. In bounded mode the oldest
// key is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
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
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, id string) State {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		if el.Value.(*entry).done {
			return StateDone
		}
		return StateInFlight
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(*entry).id)
	}
	d.seen[id] = d.order.PushBack(&entry{id: id})
	return StateNew
}

func (d *inMemoryDeduper) Commit(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		el.Value.(*entry).done = true
	}
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
