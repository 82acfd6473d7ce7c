package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoffAttemptCounts(t *testing.T) {
	errFlaky := errors.New("flaky")

	tests := []struct {
		name         string
		failUntil    int // attempts that fail before success; -1 = always fail
		maxAttempts  int
		wantAttempts int
		wantErr      error
	}{
		{"first try succeeds", 0, 3, 1, nil},
		{"succeeds on third attempt", 2, 5, 3, nil},
		{"exhausts attempts", -1, 3, 3, errFlaky},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := RetryWithBackoff(context.Background(), func() error {
				attempts++
				if tt.failUntil < 0 || attempts <= tt.failUntil {
					return errFlaky
				}
				return nil
			}, tt.maxAttempts, time.Millisecond)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func TestRetryWithBackoffInvalidMaxAttempts(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return errors.New("never reached")
	}, 0, time.Millisecond)

	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	assert.Zero(t, attempts)
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := RetryWithBackoff(ctx, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("still failing")
	}, 10, 5*time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2)
}

func TestRetryWithBackoffDelaysGrow(t *testing.T) {
	attempts := 0
	var gaps []time.Duration
	last := time.Now()

	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		if attempts > 1 {
			gaps = append(gaps, time.Since(last))
		}
		last = time.Now()
		if attempts < 4 {
			return errors.New("not yet")
		}
		return nil
	}, 5, 10*time.Millisecond)

	require.NoError(t, err)
	require.Len(t, gaps, 3)
	assert.Greater(t, gaps[1], gaps[0])
	assert.Greater(t, gaps[2], gaps[1])
}
