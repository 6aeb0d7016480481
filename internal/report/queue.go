package report

import (
	"context"
	"errors"
	"fmt"
)

// ErrQueueClosed is returned when the queue closes before a SuiteEnd.
var ErrQueueClosed = errors.New("queue closed before suite end")

// Message is one lifecycle notification posted by the runner.
type Message interface {
	isMessage()
}

// SuiteBegin opens collection.
type SuiteBegin struct {
	Suite SuiteInfo
}

// RunEnd carries one finished run.
type RunEnd struct {
	Run    RunInfo
	Result RunResult
}

// SuiteEnd is the terminal message; nothing is read after it.
type SuiteEnd struct {
	Result SuiteResult
}

func (SuiteBegin) isMessage() {}
func (RunEnd) isMessage()     {}
func (SuiteEnd) isMessage()   {}

// Consume drains the queue into the reporter until SuiteEnd arrives, then
// returns the finalized report. Workers may post RunEnd concurrently; the
// reporter itself is only ever touched from this goroutine.
//
// State errors on RunEnd (e.g. a run posted before SuiteBegin) are logged
// and skipped. Emitter and recorder errors from SuiteEnd are returned with
// the report.
func Consume(ctx context.Context, r *Reporter, queue <-chan Message) (*Report, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-queue:
			if !ok {
				return nil, ErrQueueClosed
			}
			switch m := msg.(type) {
			case SuiteBegin:
				if err := r.OnSuiteBegin(m.Suite); err != nil {
					return nil, fmt.Errorf("failed to begin suite: %w", err)
				}
			case RunEnd:
				if err := r.OnRunEnd(m.Run, m.Result); err != nil {
					r.logger.Warn("run notification rejected", "run", m.Run.ID, "state", r.State().String(), "error", err)
				}
			case SuiteEnd:
				return r.OnSuiteEnd(ctx, m.Result)
			default:
				r.logger.Warn("unknown message", "type", fmt.Sprintf("%T", msg))
			}
		}
	}
}
