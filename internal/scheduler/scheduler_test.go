package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gauger/internal/service"
)

type stubRunner struct {
	calls int32
	err   error
}

func (r *stubRunner) Run(ctx context.Context) (*service.WinRateTable, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.err != nil {
		return nil, r.err
	}
	return &service.WinRateTable{}, nil
}

type stubPruner struct{}

func (stubPruner) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestScheduleInvalidExpression(t *testing.T) {
	s := NewScheduler(testLogger())
	err := s.ScheduleSnapshots("not a cron", &stubRunner{}, time.Minute)
	assert.Error(t, err)
	assert.Empty(t, s.Entries())
}

func TestStartWithoutJobs(t *testing.T) {
	s := NewScheduler(testLogger())
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(testLogger())
	require.NoError(t, s.ScheduleSnapshots("30 21 * * 1-5", &stubRunner{}, time.Minute))
	require.NoError(t, s.ScheduleRetention("0 3 * * *", stubPruner{}, 90*24*time.Hour))
	assert.Len(t, s.Entries(), 2)
	assert.True(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.False(t, s.GetNextRun().IsZero())

	assert.Error(t, s.ScheduleSnapshots("@hourly", &stubRunner{}, time.Minute))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop())
}

func TestRetentionRequiresPositiveDuration(t *testing.T) {
	s := NewScheduler(testLogger())
	assert.Error(t, s.ScheduleRetention("@daily", stubPruner{}, 0))
}

func TestRunNow(t *testing.T) {
	s := NewScheduler(testLogger())

	runner := &stubRunner{}
	s.RunNow(context.Background(), runner)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.calls))

	failing := &stubRunner{err: errors.New("provider down")}
	assert.NotPanics(t, func() { s.RunNow(context.Background(), failing) })
	assert.Equal(t, int32(1), atomic.LoadInt32(&failing.calls))
}
