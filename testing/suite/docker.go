//go:build integration

package suite

import (
	"context"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const (
	containerTTL     = 120
	containerMaxWait = 120 * time.Second

	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

// NewDocker - like New, but against a redis container. Needs a docker daemon.
func NewDocker(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx := testContext(t, containerMaxWait)

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}
	pool.MaxWait = containerMaxWait

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("could not purge redis container: %v", err)
		}
	})

	// a leaked container still goes away
	_ = resource.Expire(containerTTL)

	addr := resource.GetHostPort(redisPort)
	if err = pool.Retry(func() error { return ping(ctx, addr) }); err != nil {
		t.Fatalf("redis container never became ready: %v", err)
	}

	return ctx, newSuite(ctx, t, addr)
}

func ping(ctx context.Context, addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	return client.Ping(ctx).Err()
}
