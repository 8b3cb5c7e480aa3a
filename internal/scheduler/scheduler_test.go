package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

type countingExpirer struct{ calls atomic.Int32 }

func (c *countingExpirer) ExpireIdle(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

type failingPruner struct{ calls atomic.Int32 }

func (f *failingPruner) CleanupOldEntries(context.Context) error {
	f.calls.Add(1)
	return errors.New("database is locked")
}

func TestScheduler_RegisterTask(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, RegisterSessionCleanup(s, "*/5 * * * *", &countingExpirer{}))
	err := RegisterSessionCleanup(s, "*/5 * * * *", &countingExpirer{})
	assert.Error(t, err, "duplicate IDs are rejected")

	assert.Error(t, s.RegisterTask(TaskConfig{ID: "bad", Cron: "not a cron", Func: func(context.Context) error { return nil }}))
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "nofunc", Cron: "* * * * *"}))
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler(t)
	exp := &countingExpirer{}
	require.NoError(t, RegisterSessionCleanup(s, "0 0 1 1 *", exp))
	s.Start()

	require.NoError(t, s.RunNow(TaskSessionCleanup))
	require.Eventually(t, func() bool { return exp.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		info, err := s.GetTask(TaskSessionCleanup)
		return err == nil && info.LastRun != nil && !info.Running
	}, time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, s.RunNow("missing"), ErrTaskNotFound)
	_, err := s.GetTask("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestScheduler_RunOnStartRecordsError(t *testing.T) {
	s := newTestScheduler(t)
	p := &failingPruner{}
	require.NoError(t, RegisterHistoryRetention(s, p))
	s.Start()

	require.Eventually(t, func() bool {
		info, err := s.GetTask(TaskHistoryRetention)
		return err == nil && info.LastError == "database is locked"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestScheduler_ListTasksSorted(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, RegisterSessionCleanup(s, "*/5 * * * *", &countingExpirer{}))
	require.NoError(t, RegisterHistoryRetention(s, &failingPruner{}))

	tasks := s.ListTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, TaskHistoryRetention, tasks[0].ID)
	assert.Equal(t, TaskSessionCleanup, tasks[1].ID)
}

type countingChecker struct{ calls atomic.Int32 }

func (c *countingChecker) CheckAll(context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestRegisterHealthCheck(t *testing.T) {
	s := newTestScheduler(t)
	checker := &countingChecker{}
	require.NoError(t, RegisterHealthCheck(s, 0, checker))

	info, err := s.GetTask(TaskHealthCheck)
	require.NoError(t, err)
	assert.Equal(t, "@every 1h0m0s", info.Cron)

	s.Start()
	require.NoError(t, s.RunNow(TaskHealthCheck))
	require.Eventually(t, func() bool { return checker.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRegisterHealthCheck_ConfiguredInterval(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, RegisterHealthCheck(s, 15*time.Minute, &countingChecker{}))

	info, err := s.GetTask(TaskHealthCheck)
	require.NoError(t, err)
	assert.Equal(t, "@every 15m0s", info.Cron)
}
