// Package storetest provides an in-memory store.Store with injectable
// failures for exercising the log's retry and truncation paths.
package storetest

import (
	"context"
	"sort"
	"sync"

	"github.com/ordnungswidrig/dynalog/internal/store"
)

const defaultPageSize = 100

// MemStore is a single-table, mutex-guarded Store. Conditions are evaluated
// for real, so concurrent writers observe genuine CAS conflicts. The hook
// fields, when set, run under the store lock before the corresponding
// operation and may return an error to inject.
type MemStore struct {
	mu   sync.Mutex
	rows map[string]map[int64]store.Item

	// Missing simulates an absent table: every operation reports
	// store.ErrTableNotFound.
	Missing bool

	// BeforeCommit, when non-nil, runs before each Commit and may veto it.
	BeforeCommit func(puts []store.Put) error
	// BeforeQuery, when non-nil, runs before each Query and may veto it.
	BeforeQuery func(q store.Query) error

	// Commits counts attempted commits, including vetoed and failed ones.
	Commits int
}

// New returns an empty MemStore.
func New() *MemStore {
	return &MemStore{rows: make(map[string]map[int64]store.Item)}
}

var _ store.Store = (*MemStore)(nil)

func (m *MemStore) Get(_ context.Context, key store.Key) (store.Item, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Missing {
		return nil, false, store.ErrTableNotFound
	}
	it, ok := m.rows[key.Partition][key.Sort]
	if !ok {
		return nil, false, nil
	}
	return cloneItem(it), true, nil
}

func (m *MemStore) Commit(_ context.Context, puts []store.Put) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commits++
	if m.Missing {
		return store.ErrTableNotFound
	}
	if m.BeforeCommit != nil {
		if err := m.BeforeCommit(puts); err != nil {
			return err
		}
	}
	// Check every condition before applying anything.
	for _, p := range puts {
		if !m.holds(p) {
			return store.ErrConditionFailed
		}
	}
	for _, p := range puts {
		part := m.rows[p.Key.Partition]
		if part == nil {
			part = make(map[int64]store.Item)
			m.rows[p.Key.Partition] = part
		}
		part[p.Key.Sort] = cloneItem(p.Attrs)
	}
	return nil
}

func (m *MemStore) holds(p store.Put) bool {
	if p.Cond == nil {
		return true
	}
	row, exists := m.rows[p.Key.Partition][p.Key.Sort]
	switch p.Cond.Op {
	case store.CondNotExists:
		if p.Cond.Attr == store.AttrPartition || p.Cond.Attr == store.AttrSort {
			return !exists
		}
		if !exists {
			return true
		}
		_, has := row[p.Cond.Attr]
		return !has
	case store.CondEquals:
		if !exists {
			return false
		}
		v, has := row[p.Cond.Attr]
		return has && v.Equal(p.Cond.Value)
	}
	return false
}

func (m *MemStore) Query(_ context.Context, q store.Query) (store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Missing {
		return store.Page{}, store.ErrTableNotFound
	}
	if m.BeforeQuery != nil {
		if err := m.BeforeQuery(q); err != nil {
			return store.Page{}, err
		}
	}
	part := m.rows[q.Partition]
	sorts := make([]int64, 0, len(part))
	for s := range part {
		if s > q.After {
			sorts = append(sorts, s)
		}
	}
	if q.Descending {
		sort.Slice(sorts, func(i, j int) bool { return sorts[i] > sorts[j] })
	} else {
		sort.Slice(sorts, func(i, j int) bool { return sorts[i] < sorts[j] })
	}
	if q.StartKey != nil {
		i := 0
		for i < len(sorts) {
			if q.Descending && sorts[i] < q.StartKey.Sort {
				break
			}
			if !q.Descending && sorts[i] > q.StartKey.Sort {
				break
			}
			i++
		}
		sorts = sorts[i:]
	}
	limit := int(q.Limit)
	if limit <= 0 {
		limit = defaultPageSize
	}
	page := store.Page{}
	for i, s := range sorts {
		if i == limit {
			last := page.Rows[len(page.Rows)-1].Key
			page.Next = &last
			break
		}
		page.Rows = append(page.Rows, store.Row{
			Key:   store.Key{Partition: q.Partition, Sort: s},
			Attrs: cloneItem(part[s]),
		})
	}
	return page, nil
}

func (m *MemStore) Describe(_ context.Context) (store.TableInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Missing {
		return store.TableInfo{}, store.ErrTableNotFound
	}
	info := store.TableInfo{Name: "mem", State: "ACTIVE"}
	for _, part := range m.rows {
		info.ItemCount += int64(len(part))
	}
	return info, nil
}

// Len reports the number of rows in a partition, pointer row included.
func (m *MemStore) Len(partition string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[partition])
}

func cloneItem(it store.Item) store.Item {
	out := make(store.Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
