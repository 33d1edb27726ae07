package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"0 3 * * *", false},
		{"*/15 * * * *", false},
		{"@daily", false},
		{"@every 6h", false},
		{"0 0 3 * * *", true},
		{"not a schedule", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := Validate(tt.spec)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNext(t *testing.T) {
	from := time.Date(2025, 3, 1, 10, 30, 0, 0, time.Local)
	next, err := Next("0 3 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 2, 3, 0, 0, 0, time.Local), next)

	_, err = Next("bogus", from)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	s := New(zaptest.NewLogger(t).Sugar())
	var runs atomic.Int32
	require.NoError(t, s.Add("scan", "@every 1s", func(ctx context.Context) error {
		runs.Inc()
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestScheduler_JobContextCancelledOnStop(t *testing.T) {
	s := New(zaptest.NewLogger(t).Sugar())
	started := make(chan struct{})
	var sawCancel atomic.Bool
	require.NoError(t, s.Add("scan", "@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, sawCancel.Load(), "Run waits for the running job")
}

func TestScheduler_RecoversPanicAndErrors(t *testing.T) {
	s := New(zaptest.NewLogger(t).Sugar())
	var calls atomic.Int32
	require.NoError(t, s.Add("scan", "@every 1s", func(ctx context.Context) error {
		if calls.Inc() == 1 {
			panic("boom")
		}
		return errors.New("scan failed")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.GreaterOrEqual(t, calls.Load(), int32(2), "scheduler keeps running after a panic")
}

func TestAdd_InvalidSpec(t *testing.T) {
	s := New(zaptest.NewLogger(t).Sugar())
	err := s.Add("scan", "every day", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}
