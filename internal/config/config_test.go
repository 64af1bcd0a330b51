package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig("/var/lib/recordergear")

	assert.Equal(t, "127.0.0.1:8090", cfg.Server.Listen)
	assert.Equal(t, filepath.Join("/var/lib/recordergear", "data"), cfg.Database.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 500, cfg.Sync.DefaultPageSize)
	require.NoError(t, cfg.Validate())
}

func TestReadOverridesDefaults(t *testing.T) {
	doc := `
[server]
listen = "0.0.0.0:9000"

[log]
level = "debug"

[sync]
default_page_size = 100
`
	cfg, err := Read(strings.NewReader(doc), "/tmp/base")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Sync.DefaultPageSize)
	// Unset sections keep defaults.
	assert.Equal(t, filepath.Join("/tmp/base", "data"), cfg.Database.DataDir)
}

func TestValidateRejectsBadPageSize(t *testing.T) {
	for _, size := range []int{0, -1, 1001} {
		cfg := NewConfig("/tmp/base")
		cfg.Sync.DefaultPageSize = size
		assert.Error(t, cfg.Validate(), "page size %d", size)
	}
}

func TestReadRejectsMalformedTOML(t *testing.T) {
	_, err := Read(strings.NewReader("[server\nlisten = nope"), "/tmp/base")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	cfg := NewConfig("/tmp/base")
	cfg.Server.Listen = "127.0.0.1:7777"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))

	got, err := Read(&buf, "/tmp/base")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestInitRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, Init(path, NewConfig(dir)))
	assert.Error(t, Init(path, NewConfig(dir)))

	_, err := os.Stat(path)
	require.NoError(t, err)

	cfg, err := ReadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8090", cfg.Server.Listen)
}
