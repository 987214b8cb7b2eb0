package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/siteprobe/internal/domain"
)

// Collector is an append-only, concurrency-safe result buffer.
type Collector struct {
	mu      sync.Mutex
	results []domain.ProbeResult
}

func NewCollector(capacity int) *Collector {
	if capacity < 0 {
		capacity = 0
	}
	return &Collector{results: make([]domain.ProbeResult, 0, capacity)}
}

// Add stores r. It cannot fail.
func (c *Collector) Add(r domain.ProbeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// Append stores a copy of r, letting a Collector stand in as a result sink.
func (c *Collector) Append(_ context.Context, r *domain.ProbeResult) error {
	c.Add(*r)
	return nil
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Results returns a snapshot in completion order.
func (c *Collector) Results() []domain.ProbeResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ProbeResult, len(c.results))
	copy(out, c.results)
	return out
}
