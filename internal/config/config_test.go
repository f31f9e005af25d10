package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\n"), 0o600))

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost", conf.Host)
	assert.Equal(t, 9000, conf.Port)
	assert.Equal(t, "info", conf.LogLevel)
	assert.Equal(t, "data/wallets", conf.WalletPath)
}

func TestLoadStorageEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
host: 0.0.0.0
logLevel: debug
storage:
  - id: 77777777-7777-7777-7777-777777777777
    driver: badger
    path: /var/lib/engine/main
  - id: 88888888-8888-8888-8888-888888888888
    driver: memory
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	conf, err := Load(path)
	require.NoError(t, err)
	require.Len(t, conf.Storage, 2)
	assert.Equal(t, "badger", conf.Storage[0].Driver)
	assert.Equal(t, "/var/lib/engine/main", conf.Storage[0].Path)
	assert.Equal(t, "memory", conf.Storage[1].Driver)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
