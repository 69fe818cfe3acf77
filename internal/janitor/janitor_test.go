package janitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
)

type fakeConnectionSweeper struct {
	calls atomic.Int64
}

func (f *fakeConnectionSweeper) SweepIdle(ctx context.Context) int {
	f.calls.Add(1)
	return 2
}

type fakeSessionSweeper struct {
	calls atomic.Int64
}

func (f *fakeSessionSweeper) SweepExpired(ctx context.Context) int {
	f.calls.Add(1)
	return 3
}

func TestJanitor_RunOnce(t *testing.T) {
	connSweeper := &fakeConnectionSweeper{}
	sessSweeper := &fakeSessionSweeper{}

	j := New(connSweeper, sessSweeper, time.Minute, logger.NewNop())
	j.RunOnce(context.Background())

	assert.Equal(t, int64(1), connSweeper.calls.Load())
	assert.Equal(t, int64(1), sessSweeper.calls.Load())
}

func TestJanitor_PeriodicSweep(t *testing.T) {
	connSweeper := &fakeConnectionSweeper{}
	sessSweeper := &fakeSessionSweeper{}

	j := New(connSweeper, sessSweeper, 10*time.Millisecond, logger.NewNop())
	j.Start()
	defer j.Stop()

	assert.Eventually(t, func() bool {
		return connSweeper.calls.Load() >= 2 && sessSweeper.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond, "the janitor should keep sweeping on its interval")
}

func TestJanitor_StopWithoutStart(t *testing.T) {
	j := New(&fakeConnectionSweeper{}, &fakeSessionSweeper{}, time.Minute, logger.NewNop())
	// Must not panic when the ticker was never created.
	j.Stop()
}

func TestNew_DefaultInterval(t *testing.T) {
	j := New(&fakeConnectionSweeper{}, &fakeSessionSweeper{}, 0, logger.NewNop())
	assert.Equal(t, DefaultInterval, j.interval)
}
