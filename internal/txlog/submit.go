package txlog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ordnungswidrig/dynalog/pkg/log"
)

// Submission is a deferred, single-execution, memoized append. The
// read-allocate-commit algorithm does not run until the first Force; that
// force triggers it exactly once and the result, success or failure, is
// replayed identically to every observer.
type Submission struct {
	id  string
	run func(context.Context) (Result, error)
	ctx context.Context

	once sync.Once
	done chan struct{}
	res  Result
	err  error
}

// Submit queues an intent to append payload. Nothing touches the store until
// the returned submission is forced. ctx is captured as the execution context
// for the eventual commit.
func (l *Log) Submit(ctx context.Context, payload []byte) *Submission {
	id := uuid.NewString()
	logger := l.logger.With(log.Str("submission", id))
	logger.Debug("submission queued", log.Int("bytes", len(payload)))
	return &Submission{
		id:   id,
		ctx:  ctx,
		done: make(chan struct{}),
		run: func(c context.Context) (Result, error) {
			res, err := l.appender.Append(c, payload)
			if err != nil {
				logger.Warn("submission failed", log.Err(err))
				return Result{}, err
			}
			logger.Debug("submission committed", log.Int64("sequence", res.Sequence))
			return res, nil
		},
	}
}

// ID identifies the submission in log output.
func (s *Submission) ID() string { return s.id }

// Force triggers the commit on first call and blocks until the memoized
// result is available or waitCtx is done. The commit itself runs under the
// context captured at Submit time, so a caller abandoning its wait neither
// cancels nor re-triggers the transaction other observers will see.
// Concurrent forces share the single execution.
func (s *Submission) Force(waitCtx context.Context) (Result, error) {
	s.once.Do(func() {
		go func() {
			s.res, s.err = s.run(s.ctx)
			close(s.done)
		}()
	})
	select {
	case <-s.done:
		return s.res, s.err
	case <-waitCtx.Done():
		return Result{}, waitCtx.Err()
	}
}
