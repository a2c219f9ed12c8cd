package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type countingPruner struct {
	runs atomic.Int32
}

func (p *countingPruner) PruneIndex() int {
	p.runs.Add(1)
	return 0
}

func TestScheduler_PrunesPeriodically(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(pruner, 10*time.Millisecond, zaptest.NewLogger(t))

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return pruner.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	// после Stop задача больше не запускается
	stopped := pruner.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, pruner.runs.Load())
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(pruner, time.Hour, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("prune task did not stop after context cancel")
	}
	assert.Zero(t, pruner.runs.Load())
}
