package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Add_InvalidSpec(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), 0)
	_, err := s.Add("every now and then", "job", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestEntry_RunNow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		job  Job
	}{
		{name: "success", job: func(ctx context.Context) error { return nil }},
		{name: "error is logged, not propagated", job: func(ctx context.Context) error { return errors.New("boom") }},
		{name: "panic is recovered", job: func(ctx context.Context) error { panic("boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New(context.Background(), time.Second)
			var calls atomic.Int32
			e, err := s.Add("@hourly", "ingest", func(ctx context.Context) error {
				calls.Add(1)
				return tt.job(ctx)
			})
			require.NoError(t, err)

			assert.NotPanics(t, e.RunNow)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestEntry_RunNow_Timeout(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), 20*time.Millisecond)
	var sawDeadline atomic.Bool
	e, err := s.Add("@hourly", "slow", func(ctx context.Context) error {
		<-ctx.Done()
		sawDeadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	})
	require.NoError(t, err)

	e.RunNow()
	assert.True(t, sawDeadline.Load())
}

func TestEntry_RunNow_CancelledBase(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(ctx, 0)
	var calls atomic.Int32
	e, err := s.Add("@hourly", "job", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	e.RunNow()
	assert.Equal(t, int32(0), calls.Load(), "no run after shutdown")
}

func TestEntry_SkipIfStillRunning(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), 0)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	e, err := s.Add("@hourly", "ingest", func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return nil
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		e.RunNow()
		close(done)
	}()
	<-started

	e.RunNow() // 実行中なのでスキップされる
	close(release)
	<-done

	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), 0)
	e, err := s.Add("@hourly", "ingest", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	before := e.Next()
	assert.Equal(t, 0, before.Minute(), "computed from the schedule before Start")
	assert.True(t, before.After(time.Now()))

	s.Start()
	require.Eventually(t, func() bool { return !s.cron.Entry(e.ID).Next.IsZero() }, time.Second, 10*time.Millisecond)
	next := e.Next()
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))

	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
