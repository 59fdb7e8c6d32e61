package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is the production store, one client per instance.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects to the project's Firestore database, resolving
// the project ID from the metadata server.
func NewFirestore(ctx context.Context) (*Firestore, error) {
	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving project ID: %w", err)
	}
	return NewFirestoreForProject(ctx, projectID)
}

func NewFirestoreForProject(ctx context.Context, projectID string) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (s *Firestore) Close() error {
	return s.client.Close()
}

func (s *Firestore) Get(ctx context.Context, collection, docID string) (map[string]any, error) {
	snap, err := s.client.Collection(collection).Doc(docID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snap.Data(), nil
}

func (s *Firestore) Exists(ctx context.Context, collection, docID string) (bool, error) {
	_, err := s.Get(ctx, collection, docID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Firestore) Create(ctx context.Context, collection, docID string, data map[string]any) error {
	_, err := s.client.Collection(collection).Doc(docID).Create(ctx, data)
	return err
}

func (s *Firestore) Set(ctx context.Context, collection, docID string, data map[string]any) error {
	_, err := s.client.Collection(collection).Doc(docID).Set(ctx, data)
	return err
}

func (s *Firestore) Delete(ctx context.Context, collection, docID string) error {
	_, err := s.client.Collection(collection).Doc(docID).Delete(ctx)
	return err
}

func (s *Firestore) ListByField(ctx context.Context, collection, field string, value any) ([]Document, error) {
	iter := s.client.Collection(collection).Where(field, "==", value).Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
}
