// Package store defines the conditional-write table abstraction the log is
// built on, plus the scalar Value type its attribute codecs convert.
//
// A Store is one physical table keyed by (partition string, sort int64).
// Implementations must provide strongly consistent point gets and range
// queries, and an all-or-nothing conditional multi-item commit. Backends live
// in subpackages (dynamo for the real thing, pebblestore for local use,
// storetest for tests).
package store

import (
	"context"
	"errors"
)

// Key addresses one row: partition key plus numeric sort key.
type Key struct {
	Partition string
	Sort      int64
}

// Item holds a row's non-key attributes.
type Item map[string]Value

// Row is one query result, key included.
type Row struct {
	Key   Key
	Attrs Item
}

// Key attribute names, shared by every backend.
const (
	AttrPartition = "partition"
	AttrSort      = "tx"
)

// CondOp enumerates the supported write preconditions.
type CondOp int

const (
	// CondNotExists requires the named attribute (and, when the attribute is
	// the partition key, the whole row) to be absent.
	CondNotExists CondOp = iota
	// CondEquals requires the named attribute to exist and equal Value.
	CondEquals
)

// Condition guards a single Put. The store evaluates it server-side against
// the current row state.
type Condition struct {
	Attr  string
	Op    CondOp
	Value Value
}

// NotExists builds an absence precondition on attr.
func NotExists(attr string) *Condition {
	return &Condition{Attr: attr, Op: CondNotExists}
}

// Equals builds a compare precondition on attr.
func Equals(attr string, v Value) *Condition {
	return &Condition{Attr: attr, Op: CondEquals, Value: v}
}

// Put is one conditional write inside a commit.
type Put struct {
	Key   Key
	Attrs Item
	Cond  *Condition // nil means unconditional
}

// Query describes a strongly consistent range read over one partition.
type Query struct {
	Partition string
	// After is the exclusive sort-key lower bound.
	After int64
	// Limit bounds the page size; 0 means backend default.
	Limit int32
	// Descending reverses the sort order.
	Descending bool
	// StartKey resumes a previous page chain; nil starts fresh.
	StartKey *Key
}

// Page is one query result page. Next is non-nil when the backend has more
// rows; pass it back as StartKey to continue.
type Page struct {
	Rows []Row
	Next *Key
}

// TableInfo is a best-effort metadata snapshot.
type TableInfo struct {
	Name      string
	State     string
	ItemCount int64
	SizeBytes int64
}

// Sentinel errors shared by all backends.
var (
	// ErrConditionFailed reports that a commit was rejected because at least
	// one Put's precondition did not hold. Nothing was written.
	ErrConditionFailed = errors.New("store: condition failed")
	// ErrTableNotFound reports that the backing table does not exist.
	ErrTableNotFound = errors.New("store: table not found")
)

// Store is the capability set the log requires from a backing table.
type Store interface {
	// Get performs a strongly consistent point read. The boolean reports
	// whether the row exists.
	Get(ctx context.Context, key Key) (Item, bool, error)

	// Commit applies all puts atomically: either every put lands or none
	// does. A failed precondition on any put yields ErrConditionFailed.
	Commit(ctx context.Context, puts []Put) error

	// Query performs a strongly consistent range read and returns one page.
	Query(ctx context.Context, q Query) (Page, error)

	// Describe returns table metadata.
	Describe(ctx context.Context) (TableInfo, error)
}
