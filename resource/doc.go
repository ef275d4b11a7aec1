// Package resource implements the Controller that accounts for and limits
// the resources spent by filter caches.
//
// A Controller governs three resources, usually shared by every cache of a
// process:
//
//   - Memory: bytes retained by cached bitsets (non-blocking, fail-fast)
//   - Warm workers: concurrent eager-loading computations
//   - IO: token bucket for the posting bytes read while warming
//
// # Memory
//
// AcquireMemory never blocks. With a hard limit configured it returns
// ErrMemoryLimitExceeded and the caller decides what to do; caches return
// the computed bitset without retaining it:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 256 << 20,
//	})
//	if err := rc.AcquireMemory(size); err != nil {
//	    // do not cache
//	}
//	defer rc.ReleaseMemory(size)
//
// # Warm Workers and IO
//
//	if err := rc.AcquireWarmer(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWarmer()
//	_ = rc.AcquireIO(ctx, estimatedBytes)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully: they become no-ops and
// report zero usage.
package resource
