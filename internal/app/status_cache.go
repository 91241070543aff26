package app

import (
	"sync"

	"github.com/nickelsound/3DprinterMonitor/internal/monitor"
)

// tickStatusCache holds the most recent tick published by the monitor loop,
// read by the live HTTP surface.
type tickStatusCache struct {
	mu     sync.RWMutex
	status monitor.TickStatus
	ready  bool
}

func newTickStatusCache() *tickStatusCache {
	return &tickStatusCache{}
}

func (c *tickStatusCache) Publish(st monitor.TickStatus) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.status = st
	c.ready = true
	c.mu.Unlock()
}

func (c *tickStatusCache) Latest() (monitor.TickStatus, bool) {
	if c == nil {
		return monitor.TickStatus{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status, c.ready
}
