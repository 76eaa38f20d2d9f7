// breadcrumbs.go implements the bounded FIFO buffer of recent breadcrumbs.

package faultline

import (
	"maps"
	"sync"
	"time"
)

// DefaultMaxBreadcrumbs is the buffer capacity used when none is configured.
const DefaultMaxBreadcrumbs = 100

// BreadcrumbBuffer is a bounded FIFO of recent breadcrumbs. When the buffer
// is full the oldest entry is evicted to make room.
//
// The buffer is safe for concurrent use. The source design left it unlocked
// under a cooperative single-threaded assumption; in Go that would risk a
// fatal runtime fault, so mutation is serialized here.
type BreadcrumbBuffer struct {
	mu     sync.Mutex
	max    int
	crumbs []Breadcrumb
}

// NewBreadcrumbBuffer creates a buffer holding at most max breadcrumbs.
// Non-positive max falls back to DefaultMaxBreadcrumbs.
func NewBreadcrumbBuffer(max int) *BreadcrumbBuffer {
	if max <= 0 {
		max = DefaultMaxBreadcrumbs
	}
	return &BreadcrumbBuffer{max: max}
}

// Add appends a breadcrumb, evicting the oldest entry if the buffer is full.
// A zero timestamp is filled with the current time in Unix milliseconds.
func (b *BreadcrumbBuffer) Add(crumb Breadcrumb) {
	if crumb.Timestamp == 0 {
		crumb.Timestamp = time.Now().UnixMilli()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.crumbs) >= b.max {
		// Shift in place so the backing array does not grow unbounded.
		n := copy(b.crumbs, b.crumbs[len(b.crumbs)-b.max+1:])
		b.crumbs = b.crumbs[:n]
	}
	b.crumbs = append(b.crumbs, crumb)
}

// All returns an independent copy of the buffered breadcrumbs in insertion
// order. Mutating the returned slice or its Data maps does not affect the
// buffer.
func (b *BreadcrumbBuffer) All() []Breadcrumb {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Breadcrumb, len(b.crumbs))
	for i, crumb := range b.crumbs {
		out[i] = crumb
		if crumb.Data != nil {
			out[i].Data = maps.Clone(crumb.Data)
		}
	}
	return out
}

// Clear empties the buffer.
func (b *BreadcrumbBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.crumbs = nil
}

// Count returns the current number of buffered breadcrumbs, always <= max.
func (b *BreadcrumbBuffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.crumbs)
}

// Max returns the configured capacity.
func (b *BreadcrumbBuffer) Max() int {
	return b.max
}
