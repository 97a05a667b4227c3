package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FilesystemStore writes each artifact to <dir>/<id><ext>.
type FilesystemStore struct {
	baseDir string
}

// NewFilesystemStore creates a store rooted at baseDir, creating the
// directory if needed.
func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FilesystemStore{baseDir: baseDir}, nil
}

// Dir returns the directory artifacts are written to.
func (s *FilesystemStore) Dir() string { return s.baseDir }

// Save writes data to a new file named after the artifact id.
func (s *FilesystemStore) Save(ctx context.Context, data []byte, mimeType string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := newID()
	path := filepath.Join(s.baseDir, id+extension(mimeType))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}
	return &Artifact{ID: id, MimeType: mimeType, Size: len(data), Path: path}, nil
}

// Open reads the artifact back from disk.
func (s *FilesystemStore) Open(ctx context.Context, id string) ([]byte, *Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	path, err := s.find(id)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, &Artifact{
		ID:       id,
		MimeType: mimeType(filepath.Ext(path)),
		Size:     len(data),
		Path:     path,
	}, nil
}

// Exists reports whether a file for id is present.
func (s *FilesystemStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.find(id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *FilesystemStore) find(id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	for _, ext := range []string{".png", ".jpg", ".gif", ".bin"} {
		path := filepath.Join(s.baseDir, id+ext)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat artifact: %w", err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, id)
}
