package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrent is the maximum number of embedding calls in flight.
	// If 0, defaults to 1.
	MaxConcurrent int64

	// RequestsPerSecond paces embedding calls. If 0, unlimited.
	RequestsPerSecond float64

	// Burst is the number of calls allowed above RequestsPerSecond.
	// If 0, defaults to MaxConcurrent.
	Burst int

	// MemoryLimitBytes is the hard limit for text held by in-flight calls.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// IOLimitBytesPerSec is the maximum archive upload throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller throttles calls to external services.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	sem      *semaphore.Weighted
	inFlight atomic.Int64

	// Pacing
	limiter   *rate.Limiter
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.MaxConcurrent)
	}

	c := &Controller{
		cfg: cfg,
		sem: semaphore.NewWeighted(cfg.MaxConcurrent),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the effective limits.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}

	return c.cfg
}

// Acquire blocks until a call slot is free and the rate limit allows one
// more call. The returned function releases the slot.
func (c *Controller) Acquire(ctx context.Context) (func(), error) {
	if c == nil {
		return func() {}, nil
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.sem.Release(1)
			return nil, err
		}
	}

	c.inFlight.Add(1)

	var released atomic.Bool

	return func() {
		if released.CompareAndSwap(false, true) {
			c.inFlight.Add(-1)
			c.sem.Release(1)
		}
	}, nil
}

// TryAcquire reserves a call slot without blocking or waiting for the
// rate limiter. It returns nil when no slot or token is available.
func (c *Controller) TryAcquire() func() {
	if c == nil {
		return func() {}
	}

	if !c.sem.TryAcquire(1) {
		return nil
	}

	if c.limiter != nil && !c.limiter.Allow() {
		c.sem.Release(1)
		return nil
	}

	c.inFlight.Add(1)

	var released atomic.Bool

	return func() {
		if released.CompareAndSwap(false, true) {
			c.inFlight.Add(-1)
			c.sem.Release(1)
		}
	}
}

// InFlight returns the number of calls currently holding a slot.
func (c *Controller) InFlight() int64 {
	if c == nil {
		return 0
	}

	return c.inFlight.Load()
}

// AcquireMemory attempts to reserve memory.
// If a hard limit is configured and usage would exceed it,
// this blocks until memory is available or ctx is canceled.
// Requests larger than the limit are clamped to it.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, c.clampMemory(bytes)); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)

	return nil
}

// TryAcquireMemory attempts to reserve memory without blocking.
// Returns true if acquired, false if limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(c.clampMemory(bytes)) {
			return false
		}
	}

	c.memUsed.Add(bytes)

	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(c.clampMemory(bytes))
	}

	c.memUsed.Add(-bytes)
}

func (c *Controller) clampMemory(bytes int64) int64 {
	return min(bytes, c.cfg.MemoryLimitBytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}

	return c.memUsed.Load()
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Large requests are split into burst-sized waits.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}

	burst := c.ioLimiter.Burst()

	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}

		bytes -= n
	}

	return nil
}
