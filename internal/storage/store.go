// Package storage provides the Goal Store: a key-value slot store that
// holds the serialized goal collection.
//
// Values are opaque bytes and every Put replaces the whole slot.
// Implementations are safe for concurrent use.
package storage

import (
	"context"
	"errors"
	"strings"
)

// DefaultKey is the slot name the goal collection is stored under.
const DefaultKey = "financialGoals"

var (
	ErrEmptyKey = errors.New("storage key cannot be empty")
	ErrClosed   = errors.New("store is closed")
)

// Store is the persistence boundary for the goal collection.
type Store interface {
	// Get returns the value stored under key. found is false when the slot
	// has never been written.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
