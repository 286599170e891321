package txlog

import (
	"context"

	"github.com/ordnungswidrig/dynalog/pkg/log"
)

// Status is a best-effort health snapshot of the backing table. Available is
// false when the metadata query failed for any reason, including the table
// not existing; the zero value is the unavailable sentinel.
type Status struct {
	Available bool
	Table     string
	State     string
	ItemCount int64
	SizeBytes int64
}

// Status queries table metadata. It never fails: this is a monitoring
// signal, not a correctness path, so every error downgrades to an
// unavailable result.
func (l *Log) Status(ctx context.Context) Status {
	info, err := l.store.Describe(ctx)
	if err != nil {
		l.logger.Debug("status unavailable", log.Err(err))
		return Status{}
	}
	return Status{
		Available: true,
		Table:     info.Name,
		State:     info.State,
		ItemCount: info.ItemCount,
		SizeBytes: info.SizeBytes,
	}
}
