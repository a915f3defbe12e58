package settings

import (
	"context"

	"cloud.google.com/go/firestore"

	"teknigo_backend/internal/platform/database"
)

// Repository reads and writes the settings document.
type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Create(ctx context.Context, s *Settings) error
	Merge(ctx context.Context, fields map[string]interface{}) error
}

type firestoreRepository struct {
	doc *firestore.DocumentRef
}

// NewFirestoreRepository returns a Repository backed by config/app.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{doc: client.Collection(database.ConfigCollection).Doc(database.AppConfigDoc)}
}

func (r *firestoreRepository) Get(ctx context.Context) (*Settings, error) {
	snap, err := r.doc.Get(ctx)
	if err != nil {
		return nil, database.MapFirestoreError(err, "Settings")
	}
	var s Settings
	if err := snap.DataTo(&s); err != nil {
		return nil, database.MapFirestoreError(err, "Settings")
	}
	return &s, nil
}

// Create fails with a conflict when the document already exists.
func (r *firestoreRepository) Create(ctx context.Context, s *Settings) error {
	_, err := r.doc.Create(ctx, s)
	return database.MapFirestoreError(err, "Settings")
}

func (r *firestoreRepository) Merge(ctx context.Context, fields map[string]interface{}) error {
	_, err := r.doc.Set(ctx, fields, firestore.MergeAll)
	return database.MapFirestoreError(err, "Settings")
}
