package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// ErrNotFound means the object does not exist in the bucket. Unlike
// availability faults this is permanent: redelivery cannot produce the
// missing source.
var ErrNotFound = errors.New("object not found")

// Gateway abstracts the durable artifact store. Fetch and Store work
// through files on local disk so that video payloads are streamed, not
// buffered in memory. Store overwrites, so a retried run converges on
// the same durable state.
type Gateway interface {
	Fetch(ctx context.Context, key, destPath string) error
	Store(ctx context.Context, key, srcPath, contentType string) error
	SignedURL(key string, ttl time.Duration) (string, error)
}

// ObjectPath joins the bucket folder and object name the way the
// upstream uploader does.
func ObjectPath(folder, name string) string {
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

// ProcessedFilename derives the result object name from the original:
// the extension is replaced by the stable `_processed.mp4` suffix.
// Downstream consumers depend on the canonical .mp4 extension.
func ProcessedFilename(original string) string {
	ext := path.Ext(original)
	return strings.TrimSuffix(original, ext) + "_processed.mp4"
}
