package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var ErrDisabled = errors.New("object storage is disabled")

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStorage captures the minimal S3-compatible operations the archive needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// ArchiveKey is where the outcome CSV of a batch is stored:
// <prefix>/<yyyy>/<mm>/<batch>.csv.
func ArchiveKey(prefix, batchID string, at time.Time) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "drawdown"
	}
	at = at.UTC()
	return path.Join(prefix, fmt.Sprintf("%04d", at.Year()), fmt.Sprintf("%02d", int(at.Month())), batchID+".csv")
}

type noopStorage struct{}

// NewNoop is used when storage is disabled; writes are dropped and reads fail
// with ErrDisabled.
func NewNoop() ObjectStorage {
	return noopStorage{}
}

func (noopStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	return nil, ErrDisabled
}

func (noopStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	return nil, ErrDisabled
}

func (noopStorage) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	return nil
}
