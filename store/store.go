// Package store provides document storage for the guarded collections:
// a Firestore-backed implementation for production and an in-memory one
// for tests and local runs. Both satisfy policy.Lookup.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Document is one stored document together with its ID.
type Document struct {
	ID   string
	Data map[string]any
}

type Store interface {
	Get(ctx context.Context, collection, docID string) (map[string]any, error)
	Exists(ctx context.Context, collection, docID string) (bool, error)
	Create(ctx context.Context, collection, docID string, data map[string]any) error
	Set(ctx context.Context, collection, docID string, data map[string]any) error
	Delete(ctx context.Context, collection, docID string) error
	ListByField(ctx context.Context, collection, field string, value any) ([]Document, error)
}
