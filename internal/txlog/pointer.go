package txlog

import (
	"context"
	"fmt"

	"github.com/ordnungswidrig/dynalog/internal/store"
)

// PointerStore reads the per-partition pointer row, the sentinel record that
// tracks the last assigned sequence. Only the appender ever writes it.
type PointerStore struct {
	store     store.Store
	partition string
}

// NewPointerStore binds a store and partition.
func NewPointerStore(s store.Store, partition string) *PointerStore {
	return &PointerStore{store: s, partition: partition}
}

// Last performs a strongly consistent point read of the pointer row. The
// boolean is false when the partition has never been written.
func (p *PointerStore) Last(ctx context.Context) (int64, bool, error) {
	attrs, ok, err := p.store.Get(ctx, store.Key{Partition: p.partition, Sort: pointerSort})
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	v, has := attrs[attrLast]
	if !has || v.Kind() != store.KindInt {
		return 0, false, fmt.Errorf("txlog: partition %q: pointer row missing %s attribute", p.partition, attrLast)
	}
	return v.Int(), true, nil
}

// ScanLatest finds the highest committed sequence by a descending query over
// the entry rows instead of the pointer row. It exists for verification and
// debugging of the pointer invariant; allocation never uses it.
func (p *PointerStore) ScanLatest(ctx context.Context) (int64, bool, error) {
	page, err := p.store.Query(ctx, store.Query{
		Partition:  p.partition,
		After:      pointerSort,
		Limit:      1,
		Descending: true,
	})
	if err != nil {
		return 0, false, err
	}
	if len(page.Rows) == 0 {
		return 0, false, nil
	}
	return page.Rows[0].Key.Sort, true, nil
}
