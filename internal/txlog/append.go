package txlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ordnungswidrig/dynalog/internal/store"
	"github.com/ordnungswidrig/dynalog/pkg/log"
)

// Appender allocates the next sequence number and commits an entry plus the
// advanced pointer in one atomic transaction, retrying on conflict.
type Appender struct {
	store     store.Store
	partition string
	pointers  *PointerStore
	retries   int
	now       func() time.Time
	hook      Hook
	logger    log.Logger
}

// Append runs the read-allocate-commit loop once for the given payload.
//
// Each attempt reads the pointer, proposes observed+1 and submits a two-item
// transaction: insert the entry guarded by row absence, and CAS the pointer
// from its observed value (or create it, guarded by absence, on the first
// append). A condition failure means another writer won the sequence; the
// attempt is discarded and the loop re-reads. Exceeding the retry budget
// fails with ErrRetriesExhausted wrapping the last conflict. A missing table
// fails immediately with partition context; any other store error propagates
// unwrapped.
func (a *Appender) Append(ctx context.Context, payload []byte) (Result, error) {
	start := a.now()
	var lastConflict error
	for attempt := 1; attempt <= a.retries; attempt++ {
		a.hook.AppendAttempt()

		observed, exists, err := a.pointers.Last(ctx)
		if err != nil {
			return Result{}, a.wrapStoreErr(err)
		}
		candidate := observed + 1
		commitTime := a.now().UnixMilli()

		entry := store.Put{
			Key: store.Key{Partition: a.partition, Sort: candidate},
			Attrs: store.Item{
				attrTime:   store.Int(commitTime),
				attrEvents: store.Bytes(payload),
			},
			// No row may already hold this sequence.
			Cond: store.NotExists(store.AttrPartition),
		}
		pointer := store.Put{
			Key:   store.Key{Partition: a.partition, Sort: pointerSort},
			Attrs: store.Item{attrLast: store.Int(candidate)},
		}
		if exists {
			pointer.Cond = store.Equals(attrLast, store.Int(observed))
		} else {
			pointer.Cond = store.NotExists(attrLast)
		}

		err = a.store.Commit(ctx, []store.Put{entry, pointer})
		if err == nil {
			a.hook.AppendCommitted(a.now().Sub(start), len(payload))
			a.logger.Debug("entry committed",
				log.Int64("sequence", candidate),
				log.Int("attempt", attempt),
				log.Int("bytes", len(payload)))
			return Result{Sequence: candidate, CommitTime: commitTime}, nil
		}
		if errors.Is(err, store.ErrConditionFailed) {
			a.hook.AppendConflict()
			lastConflict = err
			a.logger.Debug("allocation conflict",
				log.Int64("candidate", candidate),
				log.Int("attempt", attempt))
			continue
		}
		return Result{}, a.wrapStoreErr(err)
	}
	a.hook.AppendExhausted()
	return Result{}, fmt.Errorf("%w: partition %q gave up after %d attempts: %w",
		ErrRetriesExhausted, a.partition, a.retries, lastConflict)
}

func (a *Appender) wrapStoreErr(err error) error {
	if errors.Is(err, store.ErrTableNotFound) {
		return fmt.Errorf("txlog: partition %q: %w", a.partition, err)
	}
	return err
}
