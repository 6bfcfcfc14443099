// Package storage provides the durable key-value slot and the adapter that
// mirrors the transaction list into it.
package storage

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// KeyValue is a durable key-value slot. Put overwrites any prior value.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
