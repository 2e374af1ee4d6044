package models

// NFCPayload is what the mobile reader posts after a successful chip read.
// The passport mapping is deliberately unvalidated; the sender decides which
// data groups it forwards.
type NFCPayload struct {
	Passport     map[string]any `json:"passport"`
	FaceImageB64 string         `json:"face_image_b64"`
}

type NFCStoreResponse struct {
	ScanID string `json:"scan_id"`
	Status string `json:"status"`
}
