package store

import (
	"time"
)

// Blob is the raw key-value layer the store sits on.
type Blob interface {
	// Get retrieves a value. A missing key returns ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores a value with an expiration time. Zero means no expiry.
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(key string) error
}
