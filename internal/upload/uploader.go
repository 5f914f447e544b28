// Package upload sends captured photos to object storage.
package upload

import (
	"context"
	"fmt"
)

// ContentType is sent with every photo.
const ContentType = "image/jpeg"

// Uploader stores one photo under objectKey. Implementations make a single
// attempt and never retry.
type Uploader interface {
	Upload(ctx context.Context, objectKey string, data []byte) error
}

// ObjectKey returns the storage object name for a generated id.
func ObjectKey(id string) string {
	return id + ".jpeg"
}

// StatusError reports a non-success response from storage.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("storage responded %s", e.Status)
}
