package main

import (
	"context"
	"errors"
	"sync"

	"go-passport-scanner/models"
)

// ErrScanNotFound is returned when a scan id has no stored record.
var ErrScanNotFound = errors.New("scan not found")

// AuditLogStore is the append-only record of recognition attempts.
// Should be safe to use concurrently.
type AuditLogStore interface {
	// Append persists one entry. An entry is never updated or deleted
	// afterwards.
	Append(ctx context.Context, entry models.AuditLogEntry) error

	// Count returns the number of persisted entries.
	Count(ctx context.Context) (int, error)
}

// ScanStore persists accepted NFC scan records, addressed by scan id.
// Should be safe to use concurrently.
type ScanStore interface {
	// SaveScan persists one record. Records are immutable after the write.
	SaveScan(ctx context.Context, record models.ScanRecord) error

	// GetScan returns the record for the given scan id, or ErrScanNotFound.
	GetScan(ctx context.Context, scanID string) (models.ScanRecord, error)
}

// ------------------------------------------------------------------------------

type InMemoryAuditLogStore struct {
	mutex   sync.Mutex
	entries []models.AuditLogEntry
}

func NewInMemoryAuditLogStore() *InMemoryAuditLogStore {
	return &InMemoryAuditLogStore{}
}

func (s *InMemoryAuditLogStore) Append(_ context.Context, entry models.AuditLogEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryAuditLogStore) Count(_ context.Context) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.entries), nil
}

// Entries returns a copy of the stored entries, oldest first.
func (s *InMemoryAuditLogStore) Entries() []models.AuditLogEntry {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]models.AuditLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ------------------------------------------------------------------------------

type InMemoryScanStore struct {
	mutex sync.Mutex
	scans map[string]models.ScanRecord
}

func NewInMemoryScanStore() *InMemoryScanStore {
	return &InMemoryScanStore{
		scans: make(map[string]models.ScanRecord),
	}
}

func (s *InMemoryScanStore) SaveScan(_ context.Context, record models.ScanRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.scans[record.ScanID] = record
	return nil
}

func (s *InMemoryScanStore) GetScan(_ context.Context, scanID string) (models.ScanRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if record, ok := s.scans[scanID]; ok {
		return record, nil
	}
	return models.ScanRecord{}, ErrScanNotFound
}
