package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delays:      []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond},
	}
}

func startTestRunner(t *testing.T, policy Policy) *Runner {
	t.Helper()
	cfg := DefaultRunnerConfig()
	cfg.Workers = 2
	cfg.JobTimeout = time.Second
	runner := NewRunner(cfg, policy, NewMemoryLocker(), zap.NewNop())
	require.NoError(t, runner.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = runner.Stop(ctx)
	})
	return runner
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestRunnerExecutesJob(t *testing.T) {
	runner := startTestRunner(t, testPolicy())

	var ran atomic.Bool
	_, err := runner.Enqueue(context.Background(), "svc-1:CREATE", "provision", time.Time{}, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)

	waitFor(t, time.Second, ran.Load)
}

func TestRunnerRetryBound(t *testing.T) {
	runner := startTestRunner(t, testPolicy())

	var attempts atomic.Int32
	var permanentlyFailed atomic.Bool
	runner.OnPermanentFailure = func(job *Job, err error) {
		permanentlyFailed.Store(true)
	}

	start := time.Now()
	_, err := runner.Enqueue(context.Background(), "svc-1:CREATE", "provision", time.Time{}, func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("device timeout")
	})
	require.NoError(t, err)

	waitFor(t, 2*time.Second, permanentlyFailed.Load)
	assert.Equal(t, int32(3), attempts.Load(), "always-transient job is attempted exactly MaxAttempts times")
	// Two backoff delays must have elapsed between the three attempts
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRunnerPermanentShortCircuit(t *testing.T) {
	runner := startTestRunner(t, testPolicy())

	var attempts atomic.Int32
	var permanentlyFailed atomic.Bool
	runner.OnPermanentFailure = func(job *Job, err error) {
		permanentlyFailed.Store(true)
	}

	_, err := runner.Enqueue(context.Background(), "svc-1:CREATE", "provision", time.Time{}, func(ctx context.Context) error {
		attempts.Add(1)
		return Permanent(errors.New("duplicate name"))
	})
	require.NoError(t, err)

	waitFor(t, time.Second, permanentlyFailed.Load)
	assert.Equal(t, int32(1), attempts.Load(), "permanent failures are never retried")
}

func TestRunnerCoalescesSameKey(t *testing.T) {
	runner := startTestRunner(t, testPolicy())

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)

	_, err := runner.Enqueue(context.Background(), "svc-1:SUSPEND", "suspend", time.Time{}, func(ctx context.Context) error {
		started.Done()
		<-release
		return nil
	})
	require.NoError(t, err)
	started.Wait()

	_, err = runner.Enqueue(context.Background(), "svc-1:SUSPEND", "suspend", time.Time{}, func(ctx context.Context) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrCoalesced)

	// A different key is not coalesced
	var other atomic.Bool
	_, err = runner.Enqueue(context.Background(), "svc-2:SUSPEND", "suspend", time.Time{}, func(ctx context.Context) error {
		other.Store(true)
		return nil
	})
	require.NoError(t, err)

	close(release)
	waitFor(t, time.Second, other.Load)

	// After completion the key is reusable
	waitFor(t, time.Second, func() bool {
		_, err := runner.Enqueue(context.Background(), "svc-1:SUSPEND", "suspend", time.Time{}, func(ctx context.Context) error {
			return nil
		})
		return err == nil
	})
}

func TestRunnerHonorsNotBefore(t *testing.T) {
	runner := startTestRunner(t, testPolicy())

	start := time.Now()
	var ranAt atomic.Int64
	notBefore := start.Add(50 * time.Millisecond)
	_, err := runner.Enqueue(context.Background(), "svc-1:CREATE", "provision", notBefore, func(ctx context.Context) error {
		ranAt.Store(time.Since(start).Nanoseconds())
		return nil
	})
	require.NoError(t, err)

	waitFor(t, time.Second, func() bool { return ranAt.Load() > 0 })
	assert.GreaterOrEqual(t, time.Duration(ranAt.Load()), 50*time.Millisecond)
}

func TestRunnerNotRunning(t *testing.T) {
	runner := NewRunner(DefaultRunnerConfig(), testPolicy(), NewMemoryLocker(), zap.NewNop())
	_, err := runner.Enqueue(context.Background(), "k", "noop", time.Time{}, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrRunnerNotRunning)
}

func TestPolicyDelayFor(t *testing.T) {
	policy := DefaultPolicy()
	assert.Equal(t, 30*time.Second, policy.DelayFor(1))
	assert.Equal(t, 60*time.Second, policy.DelayFor(2))
	assert.Equal(t, 120*time.Second, policy.DelayFor(3))
	assert.Equal(t, 120*time.Second, policy.DelayFor(9))
	assert.Equal(t, time.Duration(0), Policy{}.DelayFor(1))
}

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	ok, err := locker.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locker.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held key cannot be re-acquired")

	require.NoError(t, locker.Unlock(ctx, "a"))
	ok, err = locker.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Expired leases are reclaimable
	ok, err = locker.TryLock(ctx, "b", time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	time.Sleep(5 * time.Millisecond)
	ok, err = locker.TryLock(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
