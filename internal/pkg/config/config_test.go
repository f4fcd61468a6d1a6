package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("yaml with defaults", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  token: "123:abc"
admin_chat_ids: [1, 2]
storage:
  apps_script:
    url: "https://script.example/exec"
reconciler:
  interval: 30m
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "123:abc", cfg.TelegramCfg.Token)
		assert.Equal(t, []int64{1, 2}, cfg.AdminChatIDs)
		assert.Equal(t, BackendAppsScript, cfg.Storage.Backend)
		assert.Equal(t, ModePolling, cfg.TelegramCfg.Mode)
		assert.Equal(t, 30*time.Minute, cfg.Reconciler.Interval)
		assert.Equal(t, "8500", cfg.Shop.UnitPrice)
		assert.Equal(t, 1, cfg.Broadcast.PerSecond)
		assert.False(t, cfg.Sheets.Enabled())
	})

	t.Run("environment overrides yaml", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  token: "from-file"
admin_chat_ids: [1]
storage:
  apps_script:
    url: "https://script.example/exec"
`)
		t.Setenv("BOT_TOKEN", "from-env")
		t.Setenv("ADMIN_CHAT_IDS", "10,20,30")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "from-env", cfg.TelegramCfg.Token)
		assert.Equal(t, []int64{10, 20, 30}, cfg.AdminChatIDs)
	})

	t.Run("missing file falls back to environment", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "tok")
		t.Setenv("ADMIN_CHAT_IDS", "5")
		t.Setenv("STORAGE_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "postgres://localhost/bot")

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
		assert.Equal(t, "postgres://localhost/bot", cfg.Storage.Postgres.DSN)
	})
}

func TestLoadValidation(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "no token",
			body: "admin_chat_ids: [1]\nstorage:\n  apps_script:\n    url: u\n",
			want: "telegram token is required",
		},
		{
			name: "no admins",
			body: "telegram:\n  token: t\nstorage:\n  apps_script:\n    url: u\n",
			want: "at least one admin chat id is required",
		},
		{
			name: "webhook without url",
			body: "telegram:\n  token: t\n  mode: webhook\nadmin_chat_ids: [1]\nstorage:\n  apps_script:\n    url: u\n",
			want: "webhook mode requires",
		},
		{
			name: "unknown backend",
			body: "telegram:\n  token: t\nadmin_chat_ids: [1]\nstorage:\n  backend: mongo\n",
			want: "unknown storage backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
