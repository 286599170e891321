package txlog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ordnungswidrig/dynalog/internal/store"
	"github.com/ordnungswidrig/dynalog/internal/store/storetest"
)

func newTestLog(t *testing.T, mem *storetest.MemStore, opts Options) *Log {
	t.Helper()
	opts.Store = mem
	if opts.Partition == "" {
		opts.Partition = "default"
	}
	l, err := Open(opts)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l
}

func mustAppend(t *testing.T, l *Log, payload string) Result {
	t.Helper()
	res, err := l.Submit(context.Background(), []byte(payload)).Force(context.Background())
	if err != nil {
		t.Fatalf("append %q: %v", payload, err)
	}
	return res
}

func TestAppendAssignsSequential(t *testing.T) {
	mem := storetest.New()
	l := newTestLog(t, mem, Options{})

	a := mustAppend(t, l, "A")
	b := mustAppend(t, l, "B")
	if a.Sequence != 1 || b.Sequence != 2 {
		t.Fatalf("want sequences 1,2; got %d,%d", a.Sequence, b.Sequence)
	}
	if a.CommitTime <= 0 {
		t.Fatalf("commit time not set: %d", a.CommitTime)
	}

	last, ok, err := l.LatestSequence(context.Background())
	if err != nil || !ok || last != 2 {
		t.Fatalf("latest = %d,%v,%v; want 2,true,nil", last, ok, err)
	}
}

func TestConcurrentSubmitsGapFree(t *testing.T) {
	const n = 24
	mem := storetest.New()
	l := newTestLog(t, mem, Options{RetryBudget: 1000})

	var wg sync.WaitGroup
	seqs := make([]int64, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.Submit(context.Background(), []byte{byte(i)}).Force(context.Background())
			seqs[i], errs[i] = res.Sequence, err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d failed: %v", i, err)
		}
	}
	sorted := append([]int64(nil), seqs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, s := range sorted {
		if s != int64(i+1) {
			t.Fatalf("sequences not gap-free: %v", sorted)
		}
	}

	last, ok, err := l.LatestSequence(context.Background())
	if err != nil || !ok || last != n {
		t.Fatalf("latest = %d,%v,%v; want %d,true,nil", last, ok, err, n)
	}
}

func TestAppendRetriesOnConflict(t *testing.T) {
	mem := storetest.New()
	remaining := 3
	mem.BeforeCommit = func([]store.Put) error {
		if remaining > 0 {
			remaining--
			return store.ErrConditionFailed
		}
		return nil
	}
	l := newTestLog(t, mem, Options{})

	res := mustAppend(t, l, "x")
	if res.Sequence != 1 {
		t.Fatalf("want sequence 1, got %d", res.Sequence)
	}
	if mem.Commits != 4 {
		t.Fatalf("want 4 commit attempts, got %d", mem.Commits)
	}
}

func TestAppendExhaustsAfterBudget(t *testing.T) {
	mem := storetest.New()
	mem.BeforeCommit = func([]store.Put) error { return store.ErrConditionFailed }
	l := newTestLog(t, mem, Options{})

	_, err := l.Submit(context.Background(), []byte("x")).Force(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("want ErrRetriesExhausted, got %v", err)
	}
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Fatalf("exhaustion should wrap the last conflict, got %v", err)
	}
	if mem.Commits != DefaultRetryBudget {
		t.Fatalf("want exactly %d attempts, got %d", DefaultRetryBudget, mem.Commits)
	}
	if mem.Len("default") != 0 {
		t.Fatalf("no row should have been committed")
	}
}

func TestAppendTableMissing(t *testing.T) {
	mem := storetest.New()
	mem.Missing = true
	l := newTestLog(t, mem, Options{Partition: "orders"})

	_, err := l.Submit(context.Background(), []byte("x")).Force(context.Background())
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("want ErrTableNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "orders") {
		t.Fatalf("error should carry partition context: %v", err)
	}
	if mem.Commits != 0 {
		t.Fatalf("missing table must not be retried into commits, got %d", mem.Commits)
	}
}

func TestAppendUnexpectedErrorNotRetried(t *testing.T) {
	mem := storetest.New()
	boom := fmt.Errorf("throttled")
	mem.BeforeCommit = func([]store.Put) error { return boom }
	l := newTestLog(t, mem, Options{})

	_, err := l.Submit(context.Background(), []byte("x")).Force(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("want underlying error surfaced, got %v", err)
	}
	if mem.Commits != 1 {
		t.Fatalf("unexpected errors must not be retried, got %d attempts", mem.Commits)
	}
}

func TestAppendUsesInjectedClock(t *testing.T) {
	mem := storetest.New()
	fixed := time.UnixMilli(1700000000000)
	l := newTestLog(t, mem, Options{Now: func() time.Time { return fixed }})

	res := mustAppend(t, l, "x")
	if res.CommitTime != fixed.UnixMilli() {
		t.Fatalf("commit time = %d, want %d", res.CommitTime, fixed.UnixMilli())
	}
}
