package servicerequest

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"teknigo_backend/internal/platform/database"
	"teknigo_backend/internal/sanitizer"
)

// MutateFunc inspects the current document inside a transaction and returns the fields to update.
type MutateFunc func(current Document) (map[string]interface{}, error)

// Repository defines the service request storage operations.
type Repository interface {
	Get(ctx context.Context, id string) (*Document, error)
	Create(ctx context.Context, data sanitizer.Record) (string, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Document, int64, error)
	// Mutate applies fn atomically and returns the updated document.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*Document, error)
}

type firestoreRepository struct {
	client   *firestore.Client
	services *firestore.CollectionRef
}

// NewFirestoreRepository creates a repository over the services collection.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client, services: client.Collection(database.ServicesCollection)}
}

func (r *firestoreRepository) Get(ctx context.Context, id string) (*Document, error) {
	snap, err := r.services.Doc(id).Get(ctx)
	if err != nil {
		return nil, database.MapFirestoreError(err, "Service request")
	}
	return &Document{ID: snap.Ref.ID, Data: sanitizer.Record(snap.Data())}, nil
}

func (r *firestoreRepository) Create(ctx context.Context, data sanitizer.Record) (string, error) {
	ref := r.services.NewDoc()
	if _, err := ref.Create(ctx, map[string]interface{}(data)); err != nil {
		return "", database.MapFirestoreError(err, "Service request")
	}
	return ref.ID, nil
}

func (r *firestoreRepository) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Document, int64, error) {
	q := r.services.Query
	if filter.ClientID != "" {
		q = q.Where(string(sanitizer.ServiceClientID), "==", filter.ClientID)
	}
	if filter.TechnicianID != "" {
		q = q.Where(string(sanitizer.ServiceTechnicianID), "==", filter.TechnicianID)
	}
	if filter.Unassigned {
		q = q.Where(string(sanitizer.ServiceTechnicianID), "==", "")
	}
	if filter.Status != "" {
		q = q.Where(string(sanitizer.ServiceStatus), "==", string(filter.Status))
	}

	total, err := database.Count(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count service requests: %w", err)
	}

	iter := database.PageQuery(q.OrderBy(string(sanitizer.ServiceCreatedAt), firestore.Desc), page, pageSize).Documents(ctx)
	defer iter.Stop()
	var out []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("list service requests: %w", err)
		}
		out = append(out, Document{ID: snap.Ref.ID, Data: sanitizer.Record(snap.Data())})
	}
	return out, total, nil
}

func (r *firestoreRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (*Document, error) {
	ref := r.services.Doc(id)
	var updated *Document
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current := Document{ID: id, Data: sanitizer.Record(snap.Data())}
		fields, err := fn(current)
		if err != nil {
			return err
		}
		updates := make([]firestore.Update, 0, len(fields))
		data := current.Data.Clone()
		for k, v := range fields {
			updates = append(updates, firestore.Update{Path: k, Value: v})
			data[k] = v
		}
		updated = &Document{ID: id, Data: data}
		return tx.Update(ref, updates)
	})
	if err != nil {
		if database.IsNotFound(err) {
			return nil, database.MapFirestoreError(err, "Service request")
		}
		return nil, err
	}
	return updated, nil
}
