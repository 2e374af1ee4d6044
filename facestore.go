package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// FaceImageStore writes face images to a directory, one file per scan id.
// Bytes are stored and returned verbatim; no decoding or re-encoding
// happens on this path.
type FaceImageStore struct {
	dir string
}

func NewFaceImageStore(dir string) (*FaceImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create face image dir: %w", err)
	}
	return &FaceImageStore{dir: dir}, nil
}

// Save writes the image and returns the path it was stored under.
func (s *FaceImageStore) Save(scanID string, image []byte) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_face.jpg", scanID))
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("failed to write face image: %w", err)
	}
	return path, nil
}

// Load reads back the image stored at the given path.
func (s *FaceImageStore) Load(path string) ([]byte, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read face image: %w", err)
	}
	return image, nil
}
