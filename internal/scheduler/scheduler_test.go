package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartWithoutReportFunction(t *testing.T) {
	s := New("")
	require.NoError(t, s.Start())
	assert.False(t, s.IsRunning())
	assert.True(t, s.Next().IsZero())
	require.Error(t, s.RunNow(context.Background()))
	s.Stop()
}

func TestStartRegistersDailyJob(t *testing.T) {
	s := New("")
	s.SetReportFunction(func(context.Context) error { return nil })
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.IsRunning())
	next := s.Next()
	require.False(t, next.IsZero())
	assert.Equal(t, 21, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.Equal(t, time.UTC, next.Location())
}

func TestInvalidSchedule(t *testing.T) {
	s := New("not a cron expression")
	s.SetReportFunction(func(context.Context) error { return nil })
	require.Error(t, s.Start())
	s.Stop()
}

func TestRunNow(t *testing.T) {
	calls := 0
	s := New("@daily")
	s.SetReportFunction(func(context.Context) error { calls++; return nil })
	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, 1, calls)
}
