// Package runctl implements the resource watchdog of spec §5: a side
// goroutine polling a time/memory budget and setting a sticky
// termination flag every hot loop in the engine checks.
//
// Grounded on cmd/nerd/main.go's zap-lifecycle process model (one
// long-running logical task, cooperative cancellation signalled
// through context rather than a raw kill) and on
// golang.org/x/sync/errgroup's WithContext pattern, already used
// exactly this way in internal/campaign/intelligence_gatherer.go's
// fan-out (one errgroup, each worker bailing out the moment egCtx is
// cancelled).
package runctl

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"idpgo/internal/idperr"
	"idpgo/internal/logging"
)

// Limits bounds a single inference call: a wall-clock deadline and an
// optional heap ceiling (bytes, 0 disables the memory check), spec
// §5's "time/memory monitor".
type Limits struct {
	Time   time.Duration
	Memory uint64
}

// Monitor owns one inference call's sticky termination flag. Reset by
// constructing a new Monitor per call — spec §5's "sticky until
// explicitly reset by a higher-level API boundary" maps onto Go as
// "the inference entry point in idpgo/inference owns the Monitor's
// lifetime, never a shared global".
type Monitor struct {
	limits      Limits
	terminated  atomic.Bool
	pollEvery   time.Duration
}

// NewMonitor returns a Monitor enforcing limits, polling every
// 50ms (tight enough that CHECKTERMINATION-equivalent callers notice
// a time-limit breach promptly without busy-polling).
func NewMonitor(limits Limits) *Monitor {
	return &Monitor{limits: limits, pollEvery: 50 * time.Millisecond}
}

// Token is the per-call handle hot loops hold, the Go-idiomatic
// equivalent of the CHECKTERMINATION macro: Check(ctx) returns
// idperr.ErrTerminated once the Monitor's watchdog has fired, or the
// context's own error if the caller cancelled independently.
type Token struct {
	m *Monitor
}

// NewToken returns a Token bound to m.
func (m *Monitor) NewToken() Token { return Token{m: m} }

// Check reports whether work should stop: ctx's own cancellation
// takes priority over the watchdog's sticky flag, so a caller-driven
// cancel (a cancelled or timed-out ctx) is distinguishable from a
// resource-limit abort if a caller inspects the error with errors.Is
// against both ctx.Err() and idperr.ErrTerminated.
func (t Token) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.m != nil && t.m.terminated.Load() {
		return idperr.ErrTerminated
	}
	return nil
}

// Run starts the watchdog goroutine via errgroup and blocks until
// work (the function passed in) returns; a firing watchdog only sets
// the flag that work's Token.Check reports, mirroring intelligence_gatherer.go's errgroup.WithContext
// fan-out with exactly one worker plus the side-thread monitor.
// Run cancels the derived context once work finishes, so the
// watchdog goroutine always exits.
func (m *Monitor) Run(ctx context.Context, work func(ctx context.Context, tok Token) error) error {
	eg, egCtx := errgroup.WithContext(ctx)
	watchCtx, cancelWatch := context.WithCancel(egCtx)
	defer cancelWatch()

	eg.Go(func() error {
		m.watch(watchCtx)
		return nil
	})

	eg.Go(func() error {
		defer cancelWatch()
		return work(egCtx, m.NewToken())
	})

	return eg.Wait()
}

func (m *Monitor) watch(ctx context.Context) {
	start := time.Now()
	ticker := time.NewTicker(m.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.limits.Time > 0 && time.Since(start) > m.limits.Time {
				runctlLog.Warnw("time limit exceeded, terminating", "limit", m.limits.Time)
				m.terminated.Store(true)
				return
			}
			if m.limits.Memory > 0 {
				var stats runtime.MemStats
				runtime.ReadMemStats(&stats)
				if stats.HeapAlloc > m.limits.Memory {
					runctlLog.Warnw("memory limit exceeded, terminating", "limit", m.limits.Memory, "heapAlloc", stats.HeapAlloc)
					m.terminated.Store(true)
					return
				}
			}
		}
	}
}

// Terminated reports whether the watchdog has already fired.
func (m *Monitor) Terminated() bool { return m.terminated.Load() }

var runctlLog = logging.For(logging.LayerRunctl)
