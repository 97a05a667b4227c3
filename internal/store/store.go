// Package store keeps the images produced by tool calls and hands out
// identifiers for them.
//
// The repair core never touches a store; the server injects one and records
// every output image so the agent can refer back to it by artifact id.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no artifact has the requested id.
var ErrNotFound = errors.New("artifact not found")

// Artifact describes a stored image.
type Artifact struct {
	ID       string `json:"artifact_id"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
	// Path is set by stores that keep artifacts on disk.
	Path string `json:"path,omitempty"`
}

// Store assigns identifiers to encoded images and returns them on request.
type Store interface {
	// Save stores data and returns the new artifact.
	Save(ctx context.Context, data []byte, mimeType string) (*Artifact, error)

	// Open returns the bytes and description of a stored artifact.
	Open(ctx context.Context, id string) ([]byte, *Artifact, error)

	// Exists reports whether an artifact with id is stored.
	Exists(ctx context.Context, id string) (bool, error)
}

// newID returns a fresh artifact identifier.
func newID() string {
	return uuid.NewString()
}

// validID rejects anything that is not an id this package handed out, which
// also keeps ids from escaping a storage directory.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// extension maps a MIME type to the file extension used on disk.
func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	}
	return ".bin"
}

// mimeType is the inverse of extension.
func mimeType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	}
	return "application/octet-stream"
}
