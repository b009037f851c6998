// Package blob provides backend.BlobStore implementations: a directory on
// disk served over HTTP, and an S3-compatible bucket with presigned
// addresses.
package blob

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotFound is returned when resolving a key that was never stored.
var ErrNotFound = errors.New("blob not found")

// sniffLen is how many leading bytes are inspected to detect content type.
const sniffLen = 3072

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}

// contentType detects the media type of a blob from its leading bytes.
func contentType(head []byte) string {
	return mimetype.Detect(head).String()
}
