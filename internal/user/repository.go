package user

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"teknigo_backend/internal/platform/database"
	"teknigo_backend/internal/sanitizer"
)

// Repository defines the profile storage operations.
type Repository interface {
	Get(ctx context.Context, uid string) (sanitizer.Record, error)
	Create(ctx context.Context, uid string, profile sanitizer.Record) error
	Update(ctx context.Context, uid string, fields map[string]interface{}) error
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]sanitizer.Record, int64, error)
}

type firestoreRepository struct {
	users *firestore.CollectionRef
}

// NewFirestoreRepository creates a profile repository over the users collection.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{users: client.Collection(database.UsersCollection)}
}

func (r *firestoreRepository) Get(ctx context.Context, uid string) (sanitizer.Record, error) {
	snap, err := r.users.Doc(uid).Get(ctx)
	if err != nil {
		return nil, database.MapFirestoreError(err, "User")
	}
	return sanitizer.Record(snap.Data()), nil
}

// Create fails with a conflict when a profile already exists for uid.
func (r *firestoreRepository) Create(ctx context.Context, uid string, profile sanitizer.Record) error {
	_, err := r.users.Doc(uid).Create(ctx, map[string]interface{}(profile))
	return database.MapFirestoreError(err, "User")
}

// Update changes the given top-level fields of an existing profile.
func (r *firestoreRepository) Update(ctx context.Context, uid string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := r.users.Doc(uid).Update(ctx, updates)
	return database.MapFirestoreError(err, "User")
}

func (r *firestoreRepository) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]sanitizer.Record, int64, error) {
	q := r.users.Query
	if filter.UserType != "" {
		q = q.Where(string(sanitizer.UserType), "==", filter.UserType.String())
	}
	if filter.ExcludeDisabled {
		q = q.Where(string(sanitizer.UserDisabled), "==", false)
	}

	total, err := database.Count(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	iter := database.PageQuery(q, page, pageSize).Documents(ctx)
	defer iter.Stop()
	var out []sanitizer.Record
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("list users: %w", err)
		}
		out = append(out, sanitizer.Record(snap.Data()))
	}
	return out, total, nil
}
