package service

import (
	"errors"
	"fmt"

	"github.com/teamtrack/teamtrack-api/internal/storage"
)

// Upload - содержимое одного файла из multipart-запроса
type Upload struct {
	Filename string
	Data     []byte
}

// BlobStore хранит байты и возвращает стабильную ссылку; в БД попадает только она
type BlobStore interface {
	Save(prefix, filename string, data []byte) (string, error)
}

func saveBlob(blobs BlobStore, prefix string, up Upload) (string, error) {
	ref, err := blobs.Save(prefix, up.Filename, up.Data)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedFormat) || errors.Is(err, storage.ErrFileTooLarge) {
			return "", fmt.Errorf("%s: %w", err, ErrValidation)
		}
		return "", err
	}
	return ref, nil
}
