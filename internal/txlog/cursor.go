package txlog

import (
	"context"
	"sync/atomic"

	"github.com/ordnungswidrig/dynalog/internal/store"
	"github.com/ordnungswidrig/dynalog/pkg/log"
)

// Cursor replays committed entries after a watermark in ascending sequence
// order, fetching pages lazily. It is owned by a single consumer: Next must
// not be called concurrently, but Close is safe to call from any goroutine at
// any time, including while a Next is in flight.
type Cursor struct {
	store     store.Store
	partition string
	pageSize  int32
	hook      Hook
	logger    log.Logger

	watermark int64      // highest sequence handed to the consumer, or the opening bound
	resume    *store.Key // continuation within the current page chain
	buf       []Entry
	done      bool
	err       error // abnormal stop cause, nil on natural end or Close

	closed atomic.Bool
}

// Tail opens a cursor for entries with sequence > after. Zero (or negative)
// reads from the beginning. The produced stream is finite: once exhausted,
// reopen with the last consumed sequence to pick up newer entries.
func (l *Log) Tail(after int64) *Cursor {
	if after < 0 {
		after = 0
	}
	return &Cursor{
		store:     l.store,
		partition: l.partition,
		pageSize:  l.pageSize,
		hook:      l.hook,
		logger:    l.logger,
		watermark: after,
	}
}

// Next returns the next entry. ok is false once the cursor is exhausted,
// closed, or stopped by a store failure; failures never surface as errors
// here because the caller is expected to reopen from the last consumed
// sequence on its own cadence. Err reports why a stream ended early.
func (c *Cursor) Next(ctx context.Context) (Entry, bool) {
	for {
		if len(c.buf) > 0 {
			e := c.buf[0]
			c.buf = c.buf[1:]
			c.watermark = e.Sequence
			return e, true
		}
		if c.done {
			return Entry{}, false
		}
		// Cancellation is checked only at page boundaries; entries already
		// buffered from a fetched page are still delivered above.
		if c.closed.Load() {
			c.done = true
			return Entry{}, false
		}
		if !c.fetch(ctx) {
			return Entry{}, false
		}
	}
}

// fetch pulls one page into the buffer. It reports false when the stream is
// finished, leaving done set.
func (c *Cursor) fetch(ctx context.Context) bool {
	page, err := c.store.Query(ctx, store.Query{
		Partition: c.partition,
		After:     c.watermark,
		Limit:     c.pageSize,
		StartKey:  c.resume,
	})
	if err != nil {
		// Transient failures and aborted calls end the stream as if it had
		// been cancelled; the caller resumes from the last consumed sequence.
		c.done = true
		c.err = err
		c.hook.TailTruncated()
		c.logger.Debug("tail truncated",
			log.Int64("watermark", c.watermark),
			log.Err(err))
		return false
	}
	c.hook.CursorPage(len(page.Rows))
	for _, row := range page.Rows {
		e, ok := c.decode(row)
		if !ok {
			continue
		}
		c.buf = append(c.buf, e)
	}
	c.resume = page.Next
	if page.Next == nil && len(c.buf) == 0 {
		c.done = true
		return false
	}
	return true
}

func (c *Cursor) decode(row store.Row) (Entry, bool) {
	t, hasTime := row.Attrs[attrTime]
	p, hasPayload := row.Attrs[attrEvents]
	if !hasTime || !hasPayload || t.Kind() != store.KindInt || p.Kind() != store.KindBytes {
		c.logger.Warn("skipping malformed entry row", log.Int64("sequence", row.Key.Sort))
		return Entry{}, false
	}
	return Entry{
		Partition:  row.Key.Partition,
		Sequence:   row.Key.Sort,
		CommitTime: t.Int(),
		Payload:    p.Bytes(),
	}, true
}

// Close requests cooperative cancellation. Production stops at the next page
// boundary; an in-flight page fetch completes first. Close never fails and
// may be called repeatedly.
func (c *Cursor) Close() {
	c.closed.Store(true)
}

// Err reports why the stream stopped early, or nil after natural exhaustion
// or Close. It is meaningful only once Next has returned false.
func (c *Cursor) Err() error { return c.err }
