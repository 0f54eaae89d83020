package suite

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const maxTestDuration = 30 * time.Second

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage *redis.Client
	// Redis is nil when the suite runs against a real server.
	Redis *miniredis.Miniredis
}

// New - starts an in-memory redis for the test and returns a client connected to it.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx := testContext(t, maxTestDuration)

	server := miniredis.NewMiniRedis()
	if err := server.Start(); err != nil {
		t.Fatalf("could not start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	st := newSuite(ctx, t, server.Addr())
	st.Redis = server

	return ctx, st
}

func testContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)

	return ctx
}

// newSuite - connects to addr and starts the test from an empty database.
func newSuite(ctx context.Context, t *testing.T, addr string) *Suite {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("could not connect to redis: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	return &Suite{
		T:       t,
		Logger:  slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})),
		Storage: client,
	}
}
