package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for cached bitset bytes.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxWarmers is the maximum number of concurrent warm computations.
	// If 0, defaults to 1.
	MaxWarmers int64

	// IOLimitBytesPerSec is the maximum posting read throughput while warming.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Usage is a point-in-time view of a Controller.
type Usage struct {
	MemoryBytes     int64
	MemoryPeakBytes int64
	MemoryLimit     int64
	Rejections      int64
}

// Controller manages resources shared by filter caches.
type Controller struct {
	cfg Config

	memSem     *semaphore.Weighted // nil if unlimited
	memUsed    atomic.Int64
	memPeak    atomic.Int64
	rejections atomic.Int64

	warmSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWarmers <= 0 {
		cfg.MaxWarmers = 1
	}

	c := &Controller{
		cfg:     cfg,
		warmSem: semaphore.NewWeighted(cfg.MaxWarmers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireMemory attempts to reserve memory for a cached value.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control the fallback.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			c.rejections.Add(1)
			return ErrMemoryLimitExceeded
		}
	}

	used := c.memUsed.Add(bytes)
	for {
		peak := c.memPeak.Load()
		if used <= peak || c.memPeak.CompareAndSwap(peak, used) {
			break
		}
	}
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// Usage returns a snapshot of the accounted resources.
func (c *Controller) Usage() Usage {
	if c == nil {
		return Usage{}
	}
	return Usage{
		MemoryBytes:     c.memUsed.Load(),
		MemoryPeakBytes: c.memPeak.Load(),
		MemoryLimit:     c.cfg.MemoryLimitBytes,
		Rejections:      c.rejections.Load(),
	}
}

// AcquireWarmer reserves a warm worker slot.
// Blocks until a slot is free or ctx is done.
func (c *Controller) AcquireWarmer(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.warmSem.Acquire(ctx, 1)
}

// TryAcquireWarmer reserves a warm worker slot without blocking.
func (c *Controller) TryAcquireWarmer() bool {
	if c == nil {
		return true
	}
	return c.warmSem.TryAcquire(1)
}

// ReleaseWarmer releases a warm worker slot.
func (c *Controller) ReleaseWarmer() {
	if c == nil {
		return
	}
	c.warmSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than the burst are admitted in burst-sized chunks.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
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
