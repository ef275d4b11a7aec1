package bitsetcache

import "context"

// Clear drops every cached bitset regardless of segment liveness and
// releases the close listeners it registered. The cache stays usable.
// It returns the number of segments that were dropped.
func (c *Cache) Clear(reason string) int {
	n := c.inner.Clear()
	c.logger.LogClear(context.Background(), reason, n)
	return n
}

// Close clears the cache and rejects further lookups with ErrClosed.
// It is idempotent.
func (c *Cache) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	segments := c.inner.Stats().Segments
	err := c.inner.Close()
	c.logger.LogClear(context.Background(), "close", int(segments))
	return err
}
