// Package pebblestore implements store.Store on a local Pebble database.
//
// It exists for development and single-binary deployments that do not want a
// remote table. Conditional semantics are provided by serializing commits
// behind a store-wide mutex, which is only sound within one process; nothing
// polices concurrent processes opening the same data directory beyond
// Pebble's own lock file.
package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/ordnungswidrig/dynalog/internal/store"
)

const defaultPageSize = 100

// FsyncMode defines durability behavior for commits.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways requests a WAL fsync on each commit.
	FsyncModeAlways
	// FsyncModeInterval enables group-commit by letting Pebble coalesce WAL
	// syncs within the configured interval.
	FsyncModeInterval
	// FsyncModeNever avoids forcing WAL syncs from the application.
	FsyncModeNever
)

// Options configures the Pebble store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning. If nil, sensible defaults are used.
	PebbleOptions *pebble.Options
}

// Store wraps a Pebble database as a conditional-write table.
type Store struct {
	inner     *pebble.DB
	writeSync bool

	// commitMu serializes condition evaluation and batch commit so that a
	// check-then-write pair is atomic with respect to other commits.
	commitMu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// Open creates or opens the store at Options.DataDir.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebblestore: Options.DataDir is required")
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	switch opts.Fsync {
	case FsyncModeAlways:
		// Sync on each commit; WALMinSyncInterval stays at its default.
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return opts.FsyncInterval }
	case FsyncModeNever:
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner, writeSync: opts.Fsync == FsyncModeAlways}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.inner == nil {
		return nil
	}
	return s.inner.Close()
}

func (s *Store) Get(_ context.Context, key store.Key) (store.Item, bool, error) {
	val, closer, err := s.inner.Get(keyRow(key.Partition, key.Sort))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()
	attrs, ok := decodeAttrs(val)
	if !ok {
		return nil, false, fmt.Errorf("pebblestore: corrupt row %s/%d", key.Partition, key.Sort)
	}
	return attrs, true, nil
}

func (s *Store) Commit(ctx context.Context, puts []store.Put) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	for _, p := range puts {
		ok, err := s.holds(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrConditionFailed
		}
	}

	b := s.inner.NewBatch()
	defer b.Close()
	for _, p := range puts {
		if err := b.Set(keyRow(p.Key.Partition, p.Key.Sort), encodeAttrs(p.Attrs), nil); err != nil {
			return err
		}
	}
	syncMode := pebble.NoSync
	if s.writeSync {
		syncMode = pebble.Sync
	}
	return b.Commit(syncMode)
}

func (s *Store) holds(ctx context.Context, p store.Put) (bool, error) {
	if p.Cond == nil {
		return true, nil
	}
	attrs, exists, err := s.Get(ctx, p.Key)
	if err != nil {
		return false, err
	}
	switch p.Cond.Op {
	case store.CondNotExists:
		if p.Cond.Attr == store.AttrPartition || p.Cond.Attr == store.AttrSort {
			return !exists, nil
		}
		if !exists {
			return true, nil
		}
		_, has := attrs[p.Cond.Attr]
		return !has, nil
	case store.CondEquals:
		if !exists {
			return false, nil
		}
		v, has := attrs[p.Cond.Attr]
		return has && v.Equal(p.Cond.Value), nil
	}
	return false, nil
}

func (s *Store) Query(_ context.Context, q store.Query) (store.Page, error) {
	low := keyRowPrefix(q.Partition)
	hi := keyRow(q.Partition, math.MaxInt64)
	iter, err := s.inner.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return store.Page{}, err
	}
	defer iter.Close()

	limit := int(q.Limit)
	if limit <= 0 {
		limit = defaultPageSize
	}

	// The effective exclusive bound is the larger of After and any resume
	// position from a previous page.
	after := q.After
	if q.StartKey != nil && !q.Descending && q.StartKey.Sort > after {
		after = q.StartKey.Sort
	}

	page := store.Page{}
	if q.Descending {
		upper := int64(math.MaxInt64)
		if q.StartKey != nil {
			upper = q.StartKey.Sort
		}
		for ok := iter.Last(); ok; ok = iter.Prev() {
			sort := sortFromKey(iter.Key())
			if sort >= upper || sort <= q.After {
				if sort <= q.After {
					break
				}
				continue
			}
			if len(page.Rows) == limit {
				last := page.Rows[len(page.Rows)-1].Key
				page.Next = &last
				return page, nil
			}
			attrs, ok := decodeAttrs(iter.Value())
			if !ok {
				continue
			}
			page.Rows = append(page.Rows, store.Row{Key: store.Key{Partition: q.Partition, Sort: sort}, Attrs: attrs})
		}
		return page, nil
	}

	for ok := iter.SeekGE(keyRow(q.Partition, after+1)); ok; ok = iter.Next() {
		sort := sortFromKey(iter.Key())
		if len(page.Rows) == limit {
			last := page.Rows[len(page.Rows)-1].Key
			page.Next = &last
			return page, nil
		}
		attrs, ok := decodeAttrs(iter.Value())
		if !ok {
			continue
		}
		page.Rows = append(page.Rows, store.Row{Key: store.Key{Partition: q.Partition, Sort: sort}, Attrs: attrs})
	}
	return page, nil
}

func (s *Store) Describe(_ context.Context) (store.TableInfo, error) {
	iter, err := s.inner.NewIter(&pebble.IterOptions{LowerBound: partPrefix, UpperBound: append(append([]byte(nil), partPrefix...), 0xff)})
	if err != nil {
		return store.TableInfo{}, err
	}
	defer iter.Close()
	var count int64
	for ok := iter.First(); ok; ok = iter.Next() {
		count++
	}
	size, err := s.inner.EstimateDiskUsage(partPrefix, append(append([]byte(nil), partPrefix...), 0xff))
	if err != nil {
		return store.TableInfo{}, err
	}
	return store.TableInfo{Name: "pebble", State: "ACTIVE", ItemCount: count, SizeBytes: int64(size)}, nil
}
