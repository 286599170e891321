package txlog

import "time"

// Hook is a minimal observation seam for log operations. Implementations
// must be safe for concurrent use.
type Hook interface {
	AppendAttempt()
	AppendConflict()
	AppendCommitted(elapsed time.Duration, payloadBytes int)
	AppendExhausted()
	CursorPage(rows int)
	TailTruncated()
}

// NoopHook is used when no hook is provided.
type NoopHook struct{}

func (NoopHook) AppendAttempt()                     {}
func (NoopHook) AppendConflict()                    {}
func (NoopHook) AppendCommitted(time.Duration, int) {}
func (NoopHook) AppendExhausted()                   {}
func (NoopHook) CursorPage(int)                     {}
func (NoopHook) TailTruncated()                     {}
