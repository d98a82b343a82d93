package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STATE_DIR", t.TempDir())

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:5000/api", cfg.APIBase)
	assert.Equal(t, 5, cfg.PollSeconds)
	assert.Equal(t, "5s", cfg.PollInterval().String())
	assert.Equal(t, "2s", cfg.SchedInterval().String())
}

func TestFromEnvRejectsBadIntervals(t *testing.T) {
	t.Setenv("STATE_DIR", t.TempDir())
	t.Setenv("POLL_SECONDS", "0")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestCookieKeys(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	t.Run("literal values", func(t *testing.T) {
		cfg := Config{CookieHashKey: key, CookieBlockKey: key}
		hash, block, err := cfg.CookieKeys()
		require.NoError(t, err)
		assert.Len(t, hash, 32)
		assert.Len(t, block, 32)
	})

	t.Run("file paths", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "hash.key")
		require.NoError(t, os.WriteFile(p, []byte(key+"\n"), 0o600))
		cfg := Config{CookieHashKey: p, CookieBlockKey: key}
		hash, _, err := cfg.CookieKeys()
		require.NoError(t, err)
		assert.Len(t, hash, 32)
	})

	t.Run("missing keys", func(t *testing.T) {
		_, _, err := Config{}.CookieKeys()
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		cfg := Config{CookieHashKey: "not base64!!", CookieBlockKey: key}
		_, _, err := cfg.CookieKeys()
		assert.Error(t, err)
	})
}
