// Package resource enforces the resource limits of centroid training:
// a hard memory budget for scratch state, a cap on concurrent builds,
// and optional pacing of the clustering loop.
package resource

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryBudgetExceeded is returned when the scratch memory required by
// a clustering call would exceed the configured budget. The check happens
// before any scratch state is allocated.
type ErrMemoryBudgetExceeded struct {
	// RequiredBytes is the scratch memory the call needs.
	RequiredBytes int64
	// BudgetBytes is the configured ceiling.
	BudgetBytes int64
}

func (e *ErrMemoryBudgetExceeded) Error() string {
	// Ceil to whole MB so the reported requirement is never understated.
	return fmt.Sprintf("memory required is %d MB, memory budget is %d MB",
		e.RequiredBytes/(1024*1024)+1, e.BudgetBytes/(1024*1024))
}

// Config holds resource limits.
type Config struct {
	// MemoryBudgetBytes is the hard ceiling for clustering scratch memory.
	// If 0, no limit is enforced (only tracking).
	MemoryBudgetBytes int64

	// MaxConcurrentBuilds is the maximum number of clustering calls running
	// at once. If 0, defaults to 1.
	MaxConcurrentBuilds int64

	// PaceOpsPerSec throttles the clustering loop to roughly this many
	// sample visits per second. If 0, unlimited. Useful for keeping
	// background index builds from starving foreground work.
	PaceOpsPerSec int64
}

// Controller manages the resources shared by clustering calls.
// A nil *Controller is valid and enforces nothing.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	buildSem *semaphore.Weighted

	// Pacing
	paceLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentBuilds <= 0 {
		cfg.MaxConcurrentBuilds = 1
	}

	c := &Controller{
		cfg:      cfg,
		buildSem: semaphore.NewWeighted(cfg.MaxConcurrentBuilds),
	}

	if cfg.MemoryBudgetBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryBudgetBytes)
	}

	if cfg.PaceOpsPerSec > 0 {
		c.paceLimiter = rate.NewLimiter(rate.Limit(cfg.PaceOpsPerSec), int(cfg.PaceOpsPerSec))
	}

	return c
}

// ReserveMemory attempts to reserve scratch memory for one clustering call.
// Returns *ErrMemoryBudgetExceeded if the budget would be exceeded.
// Non-blocking - a rejected call fails instead of waiting for memory.
func (c *Controller) ReserveMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return &ErrMemoryBudgetExceeded{
				RequiredBytes: bytes,
				BudgetBytes:   c.cfg.MemoryBudgetBytes,
			}
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved scratch memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently reserved scratch memory in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryBudget returns the configured memory budget in bytes (0 if unlimited).
func (c *Controller) MemoryBudget() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryBudgetBytes
}

// AcquireBuild reserves a build slot, blocking until one is free or the
// context is canceled.
func (c *Controller) AcquireBuild(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.buildSem.Acquire(ctx, 1)
}

// ReleaseBuild releases a build slot.
func (c *Controller) ReleaseBuild() {
	if c == nil {
		return
	}
	c.buildSem.Release(1)
}

// Pace waits until the configured rate allows another ops sample visits.
// It doubles as a cancellation point: the wait aborts when ctx is canceled.
func (c *Controller) Pace(ctx context.Context, ops int) error {
	if c == nil || c.paceLimiter == nil {
		return ctx.Err()
	}

	// A burst larger than the limiter allows would block forever; cap it.
	if burst := c.paceLimiter.Burst(); ops > burst {
		ops = burst
	}
	return c.paceLimiter.WaitN(ctx, ops)
}
