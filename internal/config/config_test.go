package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, Default, *cfg)
}

func TestDecodeOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("api_url", "https://stats.example.com/api")
	v.Set("history_limit", 0)
	v.Set("request_timeout", "5s")
	v.Set("auto_sync", true)

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, "https://stats.example.com/api", cfg.APIURL)
	assert.Equal(t, Default.HistoryLimit, cfg.HistoryLimit, "non-positive limit falls back")
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.AutoSync)
}

func TestDatabasePath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default
	p, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".statsync", "statsync.db"), filepath.Join(filepath.Base(filepath.Dir(p)), filepath.Base(p)))

	cfg.DBPath = "/var/lib/statsync/journal.db"
	p, err = cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/statsync/journal.db", p)
}
