package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-passport-scanner/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS llm_logs (
		id TEXT PRIMARY KEY,
		ts_utc TIMESTAMPTZ NOT NULL,
		request_id TEXT NOT NULL,
		model TEXT NOT NULL,
		input_json TEXT NOT NULL,
		output_json TEXT,
		success BOOLEAN NOT NULL,
		error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS nfc_scans (
		scan_id TEXT PRIMARY KEY,
		ts_utc TIMESTAMPTZ NOT NULL,
		passport_json TEXT NOT NULL,
		face_image_path TEXT NOT NULL
	)`,
}

// OpenPostgres connects to PostgreSQL and bootstraps the two insert-only
// tables.
func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return db, nil
}

// PostgresAuditLogStore persists audit entries in the llm_logs table.
type PostgresAuditLogStore struct {
	db *sql.DB
}

func NewPostgresAuditLogStore(db *sql.DB) *PostgresAuditLogStore {
	return &PostgresAuditLogStore{db: db}
}

func (s *PostgresAuditLogStore) Append(ctx context.Context, entry models.AuditLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_logs (id, ts_utc, request_id, model, input_json, output_json, success, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID,
		entry.Timestamp,
		entry.RequestID,
		entry.Model,
		entry.InputJSON,
		nullString(entry.OutputJSON),
		entry.Success,
		nullString(entry.Error),
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresAuditLogStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM llm_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

// PostgresScanStore persists scan records in the nfc_scans table.
type PostgresScanStore struct {
	db *sql.DB
}

func NewPostgresScanStore(db *sql.DB) *PostgresScanStore {
	return &PostgresScanStore{db: db}
}

func (s *PostgresScanStore) SaveScan(ctx context.Context, record models.ScanRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nfc_scans (scan_id, ts_utc, passport_json, face_image_path)
		 VALUES ($1, $2, $3, $4)`,
		record.ScanID,
		record.Timestamp,
		record.PassportJSON,
		record.FaceImagePath,
	)
	if err != nil {
		return fmt.Errorf("save scan record: %w", err)
	}
	return nil
}

func (s *PostgresScanStore) GetScan(ctx context.Context, scanID string) (models.ScanRecord, error) {
	var record models.ScanRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT scan_id, ts_utc, passport_json, face_image_path FROM nfc_scans WHERE scan_id = $1`,
		scanID,
	).Scan(&record.ScanID, &record.Timestamp, &record.PassportJSON, &record.FaceImagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScanRecord{}, ErrScanNotFound
	}
	if err != nil {
		return models.ScanRecord{}, fmt.Errorf("get scan record: %w", err)
	}
	return record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
