package run

import (
	"errors"
	"sort"
	"sync"
)

// ErrCollectorFrozen is returned when scans are added after Freeze
var ErrCollectorFrozen = errors.New("run: MS2 collector is frozen")

// Ms2Collector accumulates MS2 scans from concurrent readers.
// Freeze returns the final snapshot, ordered by scan index so that the
// result does not depend on the order in which readers finished.
type Ms2Collector struct {
	mu     sync.Mutex
	scans  []Scan
	frozen bool
}

// NewMs2Collector creates a collector with room for n scans
func NewMs2Collector(n int) *Ms2Collector {
	return &Ms2Collector{scans: make([]Scan, 0, n)}
}

// Add appends a scan. It is safe for concurrent use.
func (c *Ms2Collector) Add(s Scan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return ErrCollectorFrozen
	}
	c.scans = append(c.scans, s)
	return nil
}

// Len returns the number of collected scans
func (c *Ms2Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scans)
}

// Freeze stops collection and returns the snapshot
func (c *Ms2Collector) Freeze() []Scan {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
	sort.SliceStable(c.scans, func(i, j int) bool { return c.scans[i].Index < c.scans[j].Index })
	snap := make([]Scan, len(c.scans))
	copy(snap, c.scans)
	return snap
}
