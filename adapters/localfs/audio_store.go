// Package localfs stores uploaded chunk audio on the local filesystem behind
// opaque uuid handles. Transcoding and long-term storage are out of scope;
// this only has to hold the bytes between upload and transcription.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sanhakwon/metrocast/domain/repositories"
)

type AudioStore struct {
	dir string
}

// NewAudioStore creates the backing directory if needed.
func NewAudioStore(dir string) (repositories.AudioStore, error) {
	if dir == "" {
		dir = "media/audio"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory %s: %w", dir, err)
	}
	return &AudioStore{dir: dir}, nil
}

// Save implements repositories.AudioStore
func (s *AudioStore) Save(_ context.Context, r io.Reader) (string, error) {
	handle := uuid.NewString()

	f, err := os.Create(filepath.Join(s.dir, handle))
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return handle, nil
}

// Load implements repositories.AudioStore
func (s *AudioStore) Load(_ context.Context, handle string) ([]byte, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, handle))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file %s: %w", handle, err)
	}
	return data, nil
}

// Remove implements repositories.AudioStore
func (s *AudioStore) Remove(_ context.Context, handle string) error {
	if err := validateHandle(handle); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, handle)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove audio file %s: %w", handle, err)
	}
	return nil
}

// Handles are uuids we generated; anything with a path separator is not ours.
func validateHandle(handle string) error {
	if handle == "" || strings.ContainsAny(handle, `/\`) || strings.Contains(handle, "..") {
		return fmt.Errorf("invalid audio handle %q", handle)
	}
	return nil
}
