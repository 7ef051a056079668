package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func quickPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    8 * time.Millisecond,
		Exponential: true,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), quickPolicy(3), nil, "flaky", func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", errBoom
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls, "two failures then one success means three invocations")
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), quickPolicy(3), nil, "doomed", func(context.Context) (int, error) {
		calls++
		return 0, errBoom
	})

	assert.ErrorIs(t, err, errBoom, "the last failure surfaces unwrapped")
	assert.Equal(t, 4, calls, "max attempts + 1 invocations")
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, nil, "single", func(context.Context) (int, error) {
		calls++
		return 0, errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestDo_BackoffSchedule(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 400 * time.Millisecond, Exponential: true}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3), "capped at max delay")
	assert.Equal(t, 400*time.Millisecond, p.Backoff(62), "shift overflow saturates at max delay")

	constant := Policy{MaxAttempts: 2, BaseDelay: 50 * time.Millisecond, Exponential: false}
	assert.Equal(t, 50*time.Millisecond, constant.Backoff(0))
	assert.Equal(t, 50*time.Millisecond, constant.Backoff(4))
}

func TestDo_ElapsedMatchesSchedule(t *testing.T) {
	p := Policy{MaxAttempts: 2, BaseDelay: 20 * time.Millisecond, MaxDelay: 100 * time.Millisecond, Exponential: true}

	start := time.Now()
	_, err := Do(context.Background(), p, nil, "timed", func(context.Context) (int, error) {
		return 0, errBoom
	})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, errBoom)
	// Schedule: 20ms + 40ms between the three attempts.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond, "no extra waits beyond the schedule")
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second, Exponential: false}
	_, err := Do(ctx, p, nil, "cancelled", func(context.Context) (int, error) {
		calls++
		return 0, errBoom
	})

	assert.ErrorIs(t, err, errBoom, "the operation's own error wins over the context error")
	assert.Equal(t, 1, calls, "cancellation during backoff stops further attempts")
}

func TestRun_WrapsErrorOnlyOperations(t *testing.T) {
	calls := 0
	err := Run(context.Background(), quickPolicy(1), nil, "unit", func(context.Context) error {
		calls++
		if calls == 1 {
			return errBoom
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{MaxAttempts: -1}.Validate())
	assert.Error(t, Policy{BaseDelay: -time.Second}.Validate())
}
