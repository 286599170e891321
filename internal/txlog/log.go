package txlog

import (
	"context"
	"errors"
	"time"

	"github.com/ordnungswidrig/dynalog/internal/store"
	"github.com/ordnungswidrig/dynalog/pkg/log"
)

// Table schema: the partition/sort keys come from the store package; these
// are the non-key attributes.
const (
	attrTime   = "tx-time" // commit timestamp, entry rows only
	attrEvents = "events"  // opaque payload, entry rows only
	attrLast   = "last"    // current max sequence, pointer row only
)

// pointerSort is the reserved sort key of the pointer row. Valid sequences
// start at 1, so tail queries (sequence > watermark >= 0) never see it.
const pointerSort = 0

// DefaultRetryBudget bounds the appender's optimistic retry loop.
const DefaultRetryBudget = 20

// DefaultPageSize bounds tail query pages.
const DefaultPageSize = 100

// ErrTableNotFound reports that the backing table does not exist.
var ErrTableNotFound = store.ErrTableNotFound

// ErrRetriesExhausted reports that an append gave up after its retry budget;
// the wrapped cause is the last allocation conflict observed.
var ErrRetriesExhausted = errors.New("txlog: sequence allocation retries exhausted")

// Entry is one committed append. Entries are immutable once committed.
type Entry struct {
	Partition  string
	Sequence   int64
	CommitTime int64 // wall clock, milliseconds; sequence is authoritative for order
	Payload    []byte
}

// Result reports a successful append.
type Result struct {
	Sequence   int64
	CommitTime int64
}

// Options configures a Log.
type Options struct {
	// Store is the backing table. Required.
	Store store.Store
	// Partition names the logical log instance. Defaults to "default".
	Partition string
	// PageSize bounds tail query pages. Defaults to DefaultPageSize.
	PageSize int32
	// RetryBudget bounds append attempts. Defaults to DefaultRetryBudget.
	RetryBudget int
	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger log.Logger
	// Hook observes operations, typically for metrics. Defaults to no-op.
	Hook Hook
	// Now supplies commit timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Log is the facade composing the appender, pointer store, tailing cursor and
// status reporter for one partition. Safe for concurrent use; the only
// mutable state outside the store lives in each open cursor and submission.
type Log struct {
	store     store.Store
	partition string
	pageSize  int32
	logger    log.Logger
	hook      Hook

	pointers *PointerStore
	appender *Appender
}

// Open validates options and builds the facade.
func Open(opts Options) (*Log, error) {
	if opts.Store == nil {
		return nil, errors.New("txlog: Options.Store is required")
	}
	if opts.Partition == "" {
		opts.Partition = "default"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.RetryBudget <= 0 {
		opts.RetryBudget = DefaultRetryBudget
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Hook == nil {
		opts.Hook = NoopHook{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger.WithComponent("txlog").With(log.Str("partition", opts.Partition))
	pointers := NewPointerStore(opts.Store, opts.Partition)
	l := &Log{
		store:     opts.Store,
		partition: opts.Partition,
		pageSize:  opts.PageSize,
		logger:    logger,
		hook:      opts.Hook,
		pointers:  pointers,
		appender: &Appender{
			store:     opts.Store,
			partition: opts.Partition,
			pointers:  pointers,
			retries:   opts.RetryBudget,
			now:       opts.Now,
			hook:      opts.Hook,
			logger:    logger,
		},
	}
	return l, nil
}

// Partition reports the logical log instance this facade serves.
func (l *Log) Partition() string { return l.partition }

// LatestSequence returns the highest committed sequence for the partition.
// The boolean is false when nothing has been committed yet.
func (l *Log) LatestSequence(ctx context.Context) (int64, bool, error) {
	return l.pointers.Last(ctx)
}
