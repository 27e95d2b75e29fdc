// SPDX-License-Identifier: MIT

package ledger

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

// Pending is a point that is needed or submitted.
type Pending struct {
	Point    sampler.Point
	Weight   float64 // quadrature weight reported to the model
	Prefix   string  // set once submitted
	Attempts int     // dispatches so far
}

// Queue is one controller's needed (FIFO) and submitted pools over a Store.
// Not safe for concurrent use; the owning controller serializes access.
type Queue struct {
	store     *Store
	needed    []Pending
	submitted map[string]Pending // prefix -> pending
	inflight  map[string]string  // point key -> prefix ("" while needed)
}

// NewQueue returns an empty queue over store.
func NewQueue(store *Store) *Queue {
	return &Queue{
		store:     store,
		submitted: make(map[string]Pending),
		inflight:  make(map[string]string),
	}
}

// Store returns the backing existing pool.
func (q *Queue) Store() *Store { return q.store }

// Need enqueues p unless it is existing, needed or submitted.
func (q *Queue) Need(p sampler.Point, weight float64) bool {
	key := q.store.Key(p)
	if _, ok := q.inflight[key]; ok || q.store.Has(p) {
		return false
	}
	q.inflight[key] = ""
	q.needed = append(q.needed, Pending{Point: p.Clone(), Weight: weight})

	return true
}

// Needed returns the number of needed points.
func (q *Queue) Needed() int { return len(q.needed) }

// Submitted returns the number of submitted points.
func (q *Queue) Submitted() int { return len(q.submitted) }

// Idle reports that nothing is needed or submitted.
func (q *Queue) Idle() bool { return len(q.needed) == 0 && len(q.submitted) == 0 }

// Pop moves the oldest needed point to submitted under prefix.
func (q *Queue) Pop(prefix string) (Pending, bool) {
	if len(q.needed) == 0 {
		return Pending{}, false
	}
	p := q.needed[0]
	q.needed = q.needed[1:]
	p.Prefix = prefix
	p.Attempts++
	q.submitted[prefix] = p
	q.inflight[q.store.Key(p.Point)] = prefix

	return p, true
}

// Complete moves the run prefix to the existing pool with its outputs.
//
// Errors: ErrUnknownRun.
func (q *Queue) Complete(prefix string, values map[string]float64) (Pending, error) {
	p, ok := q.submitted[prefix]
	if !ok {
		return Pending{}, fmt.Errorf("%w: %q", ErrUnknownRun, prefix)
	}
	delete(q.submitted, prefix)
	delete(q.inflight, q.store.Key(p.Point))
	q.store.Add(p.Point, values, prefix)

	return p, nil
}

// Fail handles a failed run. While attempts < maxAttempts the point goes back
// to the front of needed and retry is true; otherwise it leaves the queue.
//
// Errors: ErrUnknownRun.
func (q *Queue) Fail(prefix string, maxAttempts int) (p Pending, retry bool, err error) {
	p, ok := q.submitted[prefix]
	if !ok {
		return Pending{}, false, fmt.Errorf("%w: %q", ErrUnknownRun, prefix)
	}
	delete(q.submitted, prefix)
	key := q.store.Key(p.Point)
	if p.Attempts < maxAttempts {
		q.inflight[key] = ""
		retryP := p
		retryP.Prefix = ""
		q.needed = append([]Pending{retryP}, q.needed...)

		return p, true, nil
	}
	delete(q.inflight, key)

	return p, false, nil
}

// Owns reports whether prefix is submitted by this queue.
func (q *Queue) Owns(prefix string) bool {
	_, ok := q.submitted[prefix]

	return ok
}

// DropNeeded discards every needed point (submitted runs are kept).
func (q *Queue) DropNeeded() {
	for _, p := range q.needed {
		delete(q.inflight, q.store.Key(p.Point))
	}
	q.needed = nil
}

// Abandon forgets every needed and submitted point.
func (q *Queue) Abandon() {
	q.needed = nil
	q.submitted = make(map[string]Pending)
	q.inflight = make(map[string]string)
}
