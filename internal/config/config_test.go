package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Reads values and fills defaults", func(t *testing.T) {
		// Given: a config file with only some keys set
		path := filepath.Join(t.TempDir(), "config.yml")
		content := []byte("log-level: debug\nredis:\n  host: redis.local\ngame:\n  store-timeout: 500ms\n")
		require.NoError(t, os.WriteFile(path, content, 0o600))

		// When: loading it
		conf, err := Load(path)

		// Then: explicit values win and the rest fall back to defaults
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "redis.local:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, 500*time.Millisecond, conf.Game.StoreTimeout)
		assert.Equal(t, "channels", conf.Game.NotifyPrefix)
		assert.Equal(t, int64(20), conf.Game.OpenScanLimit)
		assert.Equal(t, "9090", conf.HTTPPort)
	})

	t.Run("Fails on missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
		require.Error(t, err)
	})

	t.Run("MustLoad panics on missing file", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
		})
	})
}
