package runctl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"idpgo/internal/idperr"
)

// TestMain verifies every test in this package leaves the watchdog
// goroutine Run spawns fully stopped, since Monitor is the one package
// in this module that deliberately starts a long-lived goroutine.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTokenCheckNilMonitorIsAlwaysOK(t *testing.T) {
	var tok Token
	assert.NoError(t, tok.Check(context.Background()))
}

func TestTokenCheckRespectsContextCancellation(t *testing.T) {
	m := NewMonitor(Limits{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.NewToken().Check(ctx), context.Canceled)
}

func TestTokenCheckReportsTerminated(t *testing.T) {
	m := NewMonitor(Limits{})
	tok := m.NewToken()
	assert.NoError(t, tok.Check(context.Background()))
	m.terminated.Store(true)
	assert.True(t, idperr.IsTerminated(tok.Check(context.Background())))
}

func TestRunCompletesWorkWithoutLimits(t *testing.T) {
	m := NewMonitor(Limits{})
	called := false
	err := m.Run(context.Background(), func(ctx context.Context, tok Token) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, m.Terminated())
}

func TestRunPropagatesWorkError(t *testing.T) {
	m := NewMonitor(Limits{})
	boom := errors.New("boom")
	err := m.Run(context.Background(), func(ctx context.Context, tok Token) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestMonitorTerminatesOnTimeLimit(t *testing.T) {
	m := NewMonitor(Limits{Time: 10 * time.Millisecond})
	m.pollEvery = time.Millisecond
	err := m.Run(context.Background(), func(ctx context.Context, tok Token) error {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return tok.Check(context.Background())
			case <-ticker.C:
				if err := tok.Check(ctx); err != nil {
					return err
				}
			}
		}
	})
	assert.True(t, idperr.IsTerminated(err))
	assert.True(t, m.Terminated())
}
