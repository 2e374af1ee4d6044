package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	require.Equal(t, "127.0.0.1", config.ServerConfig.Host)
	require.Equal(t, 30450, config.ServerConfig.Port)
	require.Equal(t, "http://127.0.0.1:11434", config.Ollama.BaseURL)
	require.Equal(t, "qwen3-vl:30b", config.Ollama.Model)
	require.Equal(t, 120, config.Ollama.TimeoutSeconds)
	require.Equal(t, "memory", config.StorageType)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_config": {"host": "0.0.0.0", "port": 9000},
		"ollama": {"base_url": "http://ollama:11434", "model": "llava", "timeout_seconds": 30, "language": "en"},
		"storage_type": "memory"
	}`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", config.ServerConfig.Host)
	require.Equal(t, 9000, config.ServerConfig.Port)
	require.Equal(t, "llava", config.Ollama.Model)
	require.Equal(t, 30, config.Ollama.TimeoutSeconds)
	require.Equal(t, "en", config.Ollama.Language)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"ollama": {"base_url": "http://from-file:11434", "model": "from-file", "timeout_seconds": 10, "language": "en"}
	}`), 0o644))

	t.Setenv("OLLAMA_BASE_URL", "http://from-env:11434")
	t.Setenv("OLLAMA_MODEL", "from-env")
	t.Setenv("OLLAMA_TIMEOUT_SECONDS", "77")
	t.Setenv("LLM_LANG", "ru")
	t.Setenv("BACKEND_PORT", "8123")
	t.Setenv("STORAGE_TYPE", "postgres")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://from-env:11434", config.Ollama.BaseURL)
	require.Equal(t, "from-env", config.Ollama.Model)
	require.Equal(t, 77, config.Ollama.TimeoutSeconds)
	require.Equal(t, "ru", config.Ollama.Language)
	require.Equal(t, 8123, config.ServerConfig.Port)
	require.Equal(t, "postgres", config.StorageType)
}

func TestCreateStoresRejectsUnknownStorageType(t *testing.T) {
	config := DefaultConfig()
	config.StorageType = "carrier-pigeon"

	_, _, err := createStores(&config)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a valid storage type")
}

func TestCreateStoresMemory(t *testing.T) {
	config := DefaultConfig()

	auditStore, scanStore, err := createStores(&config)
	require.NoError(t, err)
	require.NotNil(t, auditStore)
	require.NotNil(t, scanStore)
}
