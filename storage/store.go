package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("Key not found")
	ErrStoreClosed = errors.New("Store is closed")
	ErrInvalidJSON = errors.New("Value is not valid JSON")
)

// Update is sent to listeners whenever a key is set. Value is the JSON
// encoding of the new value.
type Update struct {
	Key   string
	Value []byte
}

type Store interface {
	Set(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string) ([]byte, error)

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update

	Close() error
}
