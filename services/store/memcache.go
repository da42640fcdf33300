package store

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// ErrNotFound is returned by Blob.Get for a missing key.
var ErrNotFound = errors.New("store: key not found")

// MemcacheBlob implements Blob on memcached.
type MemcacheBlob struct {
	client *memcache.Client
}

// NewMemcacheBlob creates a memcached-backed blob store.
func NewMemcacheBlob(serverAddr string) *MemcacheBlob {
	return &MemcacheBlob{
		client: memcache.New(serverAddr),
	}
}

func (m *MemcacheBlob) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item.Value, nil
}

func (m *MemcacheBlob) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

func (m *MemcacheBlob) Delete(key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
