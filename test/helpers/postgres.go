package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// ConnStringEnv points tests at an existing server instead of a container.
	ConnStringEnv = "TZPROBE_TEST_CONN_STRING"
	postgresImage = "postgres:16-alpine"
)

// RetryConfig defines configuration for container start retries
type RetryConfig struct {
	MaxAttempts  uint64
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// PostgresConnString returns a keyword/value or URL connection string for a
// throwaway server. The container is terminated when the test ends.
func PostgresConnString(t *testing.T, config ...RetryConfig) string {
	t.Helper()
	if connStr := GetTestEnvOrDefault(ConnStringEnv, ""); connStr != "" {
		return connStr
	}
	retryConfig := DefaultRetryConfig()
	if len(config) > 0 {
		retryConfig = config[0]
	}
	backoff := retry.WithCappedDuration(
		retryConfig.MaxDelay,
		retry.WithMaxRetries(retryConfig.MaxAttempts-1, retry.NewExponential(retryConfig.InitialDelay)),
	)
	var (
		connStr string
		attempt uint64
	)
	err := retry.Do(t.Context(), backoff, func(ctx context.Context) error {
		attempt++
		var err error
		connStr, err = startPostgres(ctx, t)
		if err != nil {
			t.Logf("Failed to start postgres container on attempt %d/%d: %v", attempt, retryConfig.MaxAttempts, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	require.NoError(t, err, "postgres container unavailable after %d attempts", attempt)
	return connStr
}

func startPostgres(ctx context.Context, t *testing.T) (string, error) {
	pgContainer, err := postgres.Run(ctx,
		postgresImage,
		postgres.WithDatabase("tzprobe"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if pgContainer != nil {
		terminateOnCleanup(t, pgContainer)
	}
	if err != nil {
		return "", err
	}
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", err
	}
	return connStr, nil
}

type terminator interface {
	Terminate(ctx context.Context, opts ...testcontainers.TerminateOption) error
}

// terminateOnCleanup stops c when the test ends, including containers that
// were created but failed to become ready.
func terminateOnCleanup(t testing.TB, c terminator) {
	t.Cleanup(func() {
		terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Terminate(terminateCtx); err != nil {
			t.Logf("Warning: failed to terminate container: %s", err)
		}
	})
}
