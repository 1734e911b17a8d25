package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/teamtrack/teamtrack-api/internal/service"
	"github.com/teamtrack/teamtrack-api/internal/storage"
)

const maxMultipartMemory = 32 << 20

// formValue возвращает nil, если поле не пришло в форме
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func formInt64(r *http.Request, key string) (*int64, error) {
	v := formValue(r, key)
	if v == nil {
		return nil, nil
	}
	n, err := strconv.ParseInt(*v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func formTime(r *http.Request, key string) (*time.Time, error) {
	v := formValue(r, key)
	if v == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func readUpload(fh *multipart.FileHeader) (service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, err
	}
	defer f.Close()

	// +1, чтобы хранилище могло отличить "ровно лимит" от "больше лимита"
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxFileSize+1))
	if err != nil {
		return service.Upload{}, err
	}
	return service.Upload{Filename: fh.Filename, Data: data}, nil
}

func fileUploads(r *http.Request, field string) ([]service.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}
