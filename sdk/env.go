package sdk

import (
	"sync"
	"time"
)

// Env is captured once at the start of every operation. All time checks of
// the operation use the same Timestamp.
type Env struct {
	Sender    Address
	Timestamp int64
}

// NewEnv stamps the caller with the clock's current time.
func NewEnv(clock Clock, sender Address) Env {
	return Env{Sender: sender, Timestamp: clock.Now()}
}

// Clock hands out unix seconds.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ManualClock only moves when told to, tests use it to walk through lockups and periods.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set jumps to an absolute time.
func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Advance moves the clock forward by d seconds and returns the new time.
func (c *ManualClock) Advance(d int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}
