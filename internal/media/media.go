// Package media stores product images received over WhatsApp on local disk.
package media

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const dirPermissions = 0755

// Store persists media files under a base directory.
type Store struct {
	baseDir string
}

// NewStore creates a media store rooted at baseDir, creating it if needed.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("media base directory not set")
	}
	if err := os.MkdirAll(baseDir, dirPermissions); err != nil {
		slog.Error("MediaStore failed to create base directory", "error", err, "dir", baseDir)
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir returns the root directory of the store.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Save writes media bytes to a new uniquely named file and returns the
// file reference (filename relative to the base directory).
func (s *Store) Save(data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("media data cannot be empty")
	}
	name := uuid.New().String() + extensionFor(mimeType)
	path := filepath.Join(s.baseDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Error("MediaStore failed to write file", "error", err, "path", path)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	slog.Debug("MediaStore saved file", "name", name, "bytes", len(data))
	return name, nil
}

// Load reads a previously saved media file by reference.
func (s *Store) Load(name string) ([]byte, error) {
	// Reject path traversal in stored references.
	if strings.Contains(name, "..") || strings.ContainsRune(name, os.PathSeparator) {
		return nil, fmt.Errorf("invalid media reference %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read media file %s: %w", name, err)
	}
	return data, nil
}

// MimeTypeOf derives the mime type from a stored file reference's extension.
func MimeTypeOf(name string) string {
	switch filepath.Ext(name) {
	case ".jpg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
