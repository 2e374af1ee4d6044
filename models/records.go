package models

import "time"

// AuditLogEntry is one recognition attempt as persisted for postmortem
// debugging. Entries are append-only; nothing updates or deletes them.
type AuditLogEntry struct {
	ID         string
	Timestamp  time.Time
	RequestID  string
	Model      string
	InputJSON  string
	OutputJSON string // empty when the model was never reached
	Success    bool
	Error      string // empty on success
}

// ScanRecord is a stored NFC readout plus the location of its face image.
type ScanRecord struct {
	ScanID        string
	Timestamp     time.Time
	PassportJSON  string
	FaceImagePath string
}
