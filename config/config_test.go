package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fieldcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "site_id: north-40\n"))
	require.NoError(t, err)

	require.Equal(t, "north-40", cfg.SiteID)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "fieldcore.db", cfg.Database.SQLite.Path)
	require.Equal(t, 8380, cfg.Web.Port)
	require.Equal(t, "none", cfg.Messaging.Backend)
	require.Equal(t, "fieldcore.updates", cfg.Messaging.UpdatesTopicPrefix)
	require.Equal(t, 30*time.Second, cfg.Sync.Interval.Std())
	require.Equal(t, 2*time.Second, cfg.Save.Debounce.Std())
	require.Equal(t, 500*time.Millisecond, cfg.Save.MinInterval.Std())
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
site_id: rig-7
database:
  driver: postgres
  postgres:
    host: db.internal
    database: fieldcore
    user: app
sync:
  interval: 45s
save:
  debounce: 250ms
messaging:
  backend: kafka
  brokers:
    - broker-1:9092
    - broker-2:9092
`))
	require.NoError(t, err)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	require.Equal(t, 5432, cfg.Database.Postgres.Port)
	require.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	require.Equal(t, 45*time.Second, cfg.Sync.Interval.Std())
	require.Equal(t, 250*time.Millisecond, cfg.Save.Debounce.Std())
	require.Equal(t, "kafka", cfg.Messaging.Backend)
	require.Len(t, cfg.Messaging.Brokers, 2)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "sync:\n  interval: soon\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "site_id: [broken\n"))
	require.Error(t, err)
}
