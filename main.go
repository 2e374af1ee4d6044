package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go-passport-scanner/events"
	log "go-passport-scanner/logging"
	"go-passport-scanner/metrics"
	redis "go-passport-scanner/redis"
)

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	flag.Parse()

	config, err := LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log.InitLogger(config.LogLevel, config.LogFormat)

	if *configPath != "" {
		slog.Info("using config", "path", *configPath)
	}
	slog.Info("hosting on", "host", config.ServerConfig.Host, "port", config.ServerConfig.Port)

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}

	faceStore, err := NewFaceImageStore(config.FilesDir)
	if err != nil {
		slog.Error("failed to create face image store", "error", err)
		os.Exit(1)
	}

	auditStore, scanStore, err := createStores(&config)
	if err != nil {
		slog.Error("failed to instantiate storage", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	recognizer := NewRecognizer(NewOllamaClient(config.Ollama), auditStore, m)

	state := &ServerState{
		recognizer: recognizer,
		scanStore:  scanStore,
		faceStore:  faceStore,
		bus:        events.NewBus(),
		metrics:    m,
	}

	server, err := NewServer(state, config.ServerConfig)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := server.ListenAndServe(); err != nil {
		slog.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
}

func createStores(config *Config) (AuditLogStore, ScanStore, error) {
	switch config.StorageType {
	case "postgres":
		slog.Info("Using postgres storage")
		db, err := OpenPostgres(context.Background(), config.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresAuditLogStore(db), NewPostgresScanStore(db), nil
	case "redis":
		slog.Info("Using redis storage")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, nil, err
		}
		namespace := config.RedisConfig.Namespace
		return NewRedisAuditLogStore(client, namespace), NewRedisScanStore(client, namespace), nil
	case "redis_sentinel":
		slog.Info("Using redis sentinel storage")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, nil, err
		}
		namespace := config.RedisSentinelConfig.Namespace
		return NewRedisAuditLogStore(client, namespace), NewRedisScanStore(client, namespace), nil
	case "memory":
		slog.Info("Using in memory storage")
		return NewInMemoryAuditLogStore(), NewInMemoryScanStore(), nil
	}
	return nil, nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}
