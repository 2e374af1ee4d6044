package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	redis "go-passport-scanner/redis"
)

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`
	Ollama       OllamaConfig `json:"ollama"`

	DataDir  string `json:"data_dir"`
	FilesDir string `json:"files_dir"`

	StorageType         string                    `json:"storage_type"`
	PostgresURL         string                    `json:"postgres_url,omitempty"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// OllamaConfig describes the external vision model service.
type OllamaConfig struct {
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Language       string `json:"language"`
}

func DefaultConfig() Config {
	return Config{
		ServerConfig: ServerConfig{
			Host: "127.0.0.1",
			Port: 30450,
		},
		Ollama: OllamaConfig{
			BaseURL:        "http://127.0.0.1:11434",
			Model:          "qwen3-vl:30b",
			TimeoutSeconds: 120,
			Language:       "ru",
		},
		DataDir:     "./data",
		FilesDir:    "./data/files",
		StorageType: "memory",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// LoadConfig builds the effective configuration: defaults, then the JSON
// config file when a path is given, then environment overrides. Read once
// at startup.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		configBytes, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(configBytes, &config); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	overrideString(&config.ServerConfig.Host, "BACKEND_HOST")
	overrideInt(&config.ServerConfig.Port, "BACKEND_PORT")
	overrideString(&config.Ollama.BaseURL, "OLLAMA_BASE_URL")
	overrideString(&config.Ollama.Model, "OLLAMA_MODEL")
	overrideInt(&config.Ollama.TimeoutSeconds, "OLLAMA_TIMEOUT_SECONDS")
	overrideString(&config.Ollama.Language, "LLM_LANG")
	overrideString(&config.DataDir, "DATA_DIR")
	overrideString(&config.FilesDir, "FILES_DIR")
	overrideString(&config.StorageType, "STORAGE_TYPE")
	overrideString(&config.PostgresURL, "POSTGRES_URL")
	overrideString(&config.LogLevel, "LOG_LEVEL")
	overrideString(&config.LogFormat, "LOG_FORMAT")
}

func overrideString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func overrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
