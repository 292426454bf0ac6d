package storage

import (
	"context"
	"io"
	"time"
)

// DocumentRepository stores KYC document objects. Objects are private and
// only ever exposed through short-lived presigned URLs.
type DocumentRepository interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}
