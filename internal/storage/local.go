package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrBadReference      = errors.New("bad file reference")
)

// MaxFileSize - лимит на один загружаемый файл
const MaxFileSize = 5 * 1024 * 1024

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// Local stores uploaded blobs on disk under a single directory and hands out
// bare file names as stable references. Callers persist only the reference.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Save validates the payload and writes it under a unique name built from the
// given prefix. Returns the reference to store.
func (l *Local) Save(prefix, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrUnsupportedFormat
	}
	if len(data) > MaxFileSize {
		return "", ErrFileTooLarge
	}

	ref := fmt.Sprintf("%s_%s%s", prefix, uuid.New().String(), ext)
	if err := os.WriteFile(filepath.Join(l.dir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return ref, nil
}

// Path resolves a stored reference back to a file path, rejecting anything
// that escapes the upload directory.
func (l *Local) Path(ref string) (string, error) {
	cleaned := filepath.Clean(ref)
	if cleaned != filepath.Base(cleaned) || strings.HasPrefix(cleaned, ".") {
		return "", ErrBadReference
	}

	path := filepath.Join(l.dir, cleaned)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", os.ErrNotExist
	}
	return path, nil
}
