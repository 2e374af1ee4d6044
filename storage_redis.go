package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-passport-scanner/models"

	"github.com/redis/go-redis/v9"
)

// RedisAuditLogStore appends audit entries to a namespaced list. Lists
// keep insertion order, which matches the append-only contract.
type RedisAuditLogStore struct {
	client    *redis.Client
	namespace string
}

func NewRedisAuditLogStore(client *redis.Client, namespace string) *RedisAuditLogStore {
	return &RedisAuditLogStore{client: client, namespace: namespace}
}

func (s *RedisAuditLogStore) key() string {
	return fmt.Sprintf("%s:llm_logs", s.namespace)
}

func (s *RedisAuditLogStore) Append(ctx context.Context, entry models.AuditLogEntry) error {
	payload, err := json.Marshal(redisAuditEntry{
		ID:         entry.ID,
		TsUTC:      entry.Timestamp.Format(time.RFC3339Nano),
		RequestID:  entry.RequestID,
		Model:      entry.Model,
		InputJSON:  entry.InputJSON,
		OutputJSON: entry.OutputJSON,
		Success:    entry.Success,
		Error:      entry.Error,
	})
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	return s.client.RPush(ctx, s.key(), payload).Err()
}

func (s *RedisAuditLogStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key()).Result()
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return int(n), nil
}

type redisAuditEntry struct {
	ID         string `json:"id"`
	TsUTC      string `json:"ts_utc"`
	RequestID  string `json:"request_id"`
	Model      string `json:"model"`
	InputJSON  string `json:"input_json"`
	OutputJSON string `json:"output_json,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// RedisScanStore keeps one hash per scan id under a namespaced key.
type RedisScanStore struct {
	client    *redis.Client
	namespace string
}

func NewRedisScanStore(client *redis.Client, namespace string) *RedisScanStore {
	return &RedisScanStore{client: client, namespace: namespace}
}

func (s *RedisScanStore) key(scanID string) string {
	return fmt.Sprintf("%s:scan:%s", s.namespace, scanID)
}

func (s *RedisScanStore) SaveScan(ctx context.Context, record models.ScanRecord) error {
	return s.client.HSet(ctx, s.key(record.ScanID), map[string]any{
		"scan_id":         record.ScanID,
		"ts_utc":          record.Timestamp.Format(time.RFC3339Nano),
		"passport_json":   record.PassportJSON,
		"face_image_path": record.FaceImagePath,
	}).Err()
}

func (s *RedisScanStore) GetScan(ctx context.Context, scanID string) (models.ScanRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.key(scanID)).Result()
	if err != nil {
		return models.ScanRecord{}, fmt.Errorf("get scan record: %w", err)
	}
	if len(fields) == 0 {
		return models.ScanRecord{}, ErrScanNotFound
	}

	ts, err := time.Parse(time.RFC3339Nano, fields["ts_utc"])
	if err != nil {
		return models.ScanRecord{}, fmt.Errorf("parse scan timestamp: %w", err)
	}
	return models.ScanRecord{
		ScanID:        fields["scan_id"],
		Timestamp:     ts,
		PassportJSON:  fields["passport_json"],
		FaceImagePath: fields["face_image_path"],
	}, nil
}
