package bitsetcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/hupe1980/bitsetcache/filter"
	"golang.org/x/sync/errgroup"
)

// Warm precomputes the warm filters for newly opened segments so the first
// query does not pay for them. It is a no-op when eager loading is disabled
// or no warm filters are configured.
//
// Segments that reach end-of-life while warming are skipped. Other failures
// are joined into the returned error; they do not stop the remaining work.
func (c *Cache) Warm(ctx context.Context, segs ...Segment) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.cfg.LoadEagerly || len(c.warmFilters) == 0 || len(segs) == 0 {
		return nil
	}

	start := time.Now()

	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.WarmConcurrency)

	for _, seg := range segs {
		if seg == nil {
			continue
		}
		for _, f := range c.warmFilters {
			g.Go(func() error {
				if err := c.warmOne(ctx, seg, f); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	c.logger.LogWarm(ctx, len(segs), len(c.warmFilters), len(errs), time.Since(start))
	return errors.Join(errs...)
}

func (c *Cache) warmOne(ctx context.Context, seg Segment, f filter.Filter) error {
	if err := c.rc.AcquireWarmer(ctx); err != nil {
		return err
	}
	defer c.rc.ReleaseWarmer()

	_, err := c.resolve(ctx, seg, f.Key(), func(ctx context.Context) (*bitset.BitSet, error) {
		bs, err := f.Evaluate(ctx, seg)
		if err != nil {
			return nil, err
		}
		// Throttle by the bytes produced, which track the postings read.
		if err := c.rc.AcquireIO(ctx, int(bs.SizeInBytes())); err != nil {
			return nil, err
		}
		return bs, nil
	})
	if err == nil || errors.Is(err, ErrSegmentClosed) {
		return nil
	}

	c.logger.WarnContext(ctx, "failed to warm bitset",
		"segmentID", uint64(seg.ID()),
		"filter", string(f.Key()),
		"error", err,
	)
	return err
}
