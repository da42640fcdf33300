package publisher

import (
	"time"
)

// Kind identifies the message type on the stream.
type Kind string

const (
	KindProductDetected  Kind = "product_detected"
	KindClearAndRedetect Kind = "clear_and_redetect"
	KindClearProduct     Kind = "clear_product"
	KindOpenAuth         Kind = "open_auth"
	KindCheckAuthStatus  Kind = "check_auth_status"
)

// Envelope wraps every published payload.
type Envelope struct {
	Kind        Kind        `json:"kind"`
	Payload     interface{} `json:"payload,omitempty"`
	PublishedAt time.Time   `json:"publishedAt"`
}

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a payload of the given kind to a stream
	Publish(kind Kind, payload interface{}) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
