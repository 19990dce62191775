package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/model"
	"github.com/opsdesk/reportgen/internal/report/repo"
	pkgredis "github.com/opsdesk/reportgen/pkg/redis"
)

func TestResolveAPIKey_EnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.toml")
	require.NoError(t, os.WriteFile(path, []byte(`GEMINI_API_KEY = "from-file"`), 0o600))

	t.Setenv("GEMINI_API_KEY", "from-env")
	key, err := resolveAPIKey(AppConfig{SecretsFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestResolveAPIKey_SecretStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.toml")
	require.NoError(t, os.WriteFile(path, []byte(`GEMINI_API_KEY = "from-file"`), 0o600))

	t.Setenv("GEMINI_API_KEY", "")
	key, err := resolveAPIKey(AppConfig{SecretsFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from-file", key)
}

func TestResolveAPIKey_Missing(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := resolveAPIKey(AppConfig{SecretsFile: filepath.Join(t.TempDir(), "absent.toml")})
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))
}

func TestResolveAPIKey_MalformedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	require.NoError(t, os.WriteFile(path, []byte(`GEMINI_API_KEY = `), 0o600))

	t.Setenv("GEMINI_API_KEY", "")
	_, err := resolveAPIKey(AppConfig{SecretsFile: path})
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))
}

func TestResolveAPIKey_EnvWinsOverMalformedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	require.NoError(t, os.WriteFile(path, []byte(`GEMINI_API_KEY = `), 0o600))

	t.Setenv("GEMINI_API_KEY", "from-env")
	key, err := resolveAPIKey(AppConfig{SecretsFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestNewResultRepository(t *testing.T) {
	ctx := context.Background()

	r, closeFn, err := newResultRepository(ctx, AppConfig{Session: model.SessionConfig{Store: "memory", TTL: time.Minute}})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &repo.MemoryResultRepository{}, r)

	mr := miniredis.RunT(t)
	r, closeFn, err = newResultRepository(ctx, AppConfig{
		Session: model.SessionConfig{Store: "redis", TTL: time.Minute},
		Redis:   pkgredis.Config{URL: "redis://" + mr.Addr(), ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1},
	})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &repo.RedisResultRepository{}, r)

	_, _, err = newResultRepository(ctx, AppConfig{Session: model.SessionConfig{Store: "etcd"}})
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))
}
