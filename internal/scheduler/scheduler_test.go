package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/boatrace-edge/internal/pipeline"
)

type countingEvaluator struct {
	calls atomic.Int32
	err   error
	block bool
}

func (c *countingEvaluator) EvaluateUpcoming(ctx context.Context) (*pipeline.BatchResult, error) {
	c.calls.Add(1)
	if c.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}
	return &pipeline.BatchResult{RunID: uuid.New()}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestScheduleEvaluationRejectsBadExpression(t *testing.T) {
	s := NewScheduler(&countingEvaluator{}, quietLogger())
	assert.Error(t, s.ScheduleEvaluation("not a cron"))
	assert.Error(t, s.Start(), "no jobs scheduled")
}

func TestSchedulerLifecycle(t *testing.T) {
	eval := &countingEvaluator{}
	s := NewScheduler(eval, quietLogger())
	require.NoError(t, s.ScheduleEvaluation("*/5 * * * *"))

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.Error(t, s.ScheduleEvaluation("* * * * *"))

	next := s.GetNextRun()
	assert.False(t, next.IsZero())
	assert.LessOrEqual(t, time.Until(next), 5*time.Minute)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
}

func TestRunOnce(t *testing.T) {
	eval := &countingEvaluator{}
	s := NewScheduler(eval, quietLogger())
	s.RunOnce()
	assert.Equal(t, int32(1), eval.calls.Load())

	eval.err = errors.New("database unavailable")
	s.RunOnce()
	assert.Equal(t, int32(2), eval.calls.Load())
}

func TestRunOnceHonoursTimeout(t *testing.T) {
	eval := &countingEvaluator{block: true}
	s := NewScheduler(eval, quietLogger())
	s.SetJobTimeout(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.RunOnce()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("evaluation was not cancelled at the job timeout")
	}
}
