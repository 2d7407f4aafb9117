package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"query-insight-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	c := newTestClient()
	calls := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("rpc error: code = Unavailable")
		}
		return "ok", nil
	}, "topology")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_MapsErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		calls     int
		code      errors.ErrorCode
		retryable bool
	}{
		{"permanent not found", fmt.Errorf("process not found"), 1, errors.ErrCodeExternalServiceError, false},
		{"timeout exhausted", fmt.Errorf("context deadline exceeded"), 3, errors.ErrCodeTimeout, true},
		{"unavailable exhausted", fmt.Errorf("connection refused"), 3, errors.ErrCodeExternalServiceError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient()
			calls := 0

			_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
				calls++
				return nil, tt.err
			}, "deploy")

			require.Error(t, err)
			assert.Equal(t, tt.calls, calls)

			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestExecuteWithRetry_Cancelled(t *testing.T) {
	c := &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
		return nil, fmt.Errorf("unavailable")
	}, "topology")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommandSender(t *testing.T) {
	t.Run("retries transient send failures", func(t *testing.T) {
		c := newTestClient()
		calls := 0

		err := c.CommandSender()(context.Background(), "complete job", func(context.Context) error {
			calls++
			if calls < 2 {
				return fmt.Errorf("rpc error: code = Unavailable desc = connection refused")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		c := newTestClient()
		calls := 0

		err := c.CommandSender()(context.Background(), "fail job", func(context.Context) error {
			calls++
			return fmt.Errorf("unavailable")
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		stdErr, ok := errors.AsStandardError(err)
		require.True(t, ok)
		assert.Contains(t, stdErr.Details, "fail job")
	})

	t.Run("permanent errors are sent once", func(t *testing.T) {
		c := newTestClient()
		calls := 0

		err := c.CommandSender()(context.Background(), "throw error", func(context.Context) error {
			calls++
			return fmt.Errorf("job not found")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
