package review

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"

	"teknigo_backend/internal/platform/database"
	"teknigo_backend/internal/sanitizer"
)

// ServiceCheck validates the reviewed service inside the create transaction.
type ServiceCheck func(service sanitizer.Record) error

// Repository defines the review storage operations.
type Repository interface {
	Get(ctx context.Context, id string) (sanitizer.Record, error)
	// CreateForService stores review and marks the service as reviewed in one transaction,
	// provided check accepts the service. It returns the new review ID.
	CreateForService(ctx context.Context, serviceID string, review sanitizer.Record, check ServiceCheck) (string, error)
	ListByTechnician(ctx context.Context, technicianID string, page, pageSize int) ([]sanitizer.Record, int64, error)
	Stats(ctx context.Context, technicianID string) (Stats, error)
}

type firestoreRepository struct {
	client   *firestore.Client
	reviews  *firestore.CollectionRef
	services *firestore.CollectionRef
}

// NewFirestoreRepository creates a repository over the reviews collection.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{
		client:   client,
		reviews:  client.Collection(database.ReviewsCollection),
		services: client.Collection(database.ServicesCollection),
	}
}

func (r *firestoreRepository) Get(ctx context.Context, id string) (sanitizer.Record, error) {
	snap, err := r.reviews.Doc(id).Get(ctx)
	if err != nil {
		return nil, database.MapFirestoreError(err, "Review")
	}
	return sanitizer.Record(snap.Data()), nil
}

func (r *firestoreRepository) CreateForService(ctx context.Context, serviceID string, review sanitizer.Record, check ServiceCheck) (string, error) {
	serviceRef := r.services.Doc(serviceID)
	reviewRef := r.reviews.NewDoc()
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(serviceRef)
		if err != nil {
			return database.MapFirestoreError(err, "Service request")
		}
		if err := check(sanitizer.Record(snap.Data())); err != nil {
			return err
		}
		data := review.Clone()
		data[string(sanitizer.ReviewID)] = reviewRef.ID
		if err := tx.Create(reviewRef, map[string]interface{}(data)); err != nil {
			return err
		}
		return tx.Update(serviceRef, []firestore.Update{
			{Path: string(sanitizer.ServiceHasReview), Value: true},
			{Path: string(sanitizer.ServiceReviewID), Value: reviewRef.ID},
		})
	})
	if err != nil {
		return "", err
	}
	return reviewRef.ID, nil
}

func (r *firestoreRepository) ListByTechnician(ctx context.Context, technicianID string, page, pageSize int) ([]sanitizer.Record, int64, error) {
	q := r.reviews.Where(string(sanitizer.ReviewTechnicianID), "==", technicianID)
	total, err := database.Count(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	iter := database.PageQuery(q.OrderBy(string(sanitizer.ReviewCreatedAt), firestore.Desc), page, pageSize).Documents(ctx)
	defer iter.Stop()
	var out []sanitizer.Record
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("list reviews: %w", err)
		}
		out = append(out, sanitizer.Record(snap.Data()))
	}
	return out, total, nil
}

// Stats aggregates the rating of every review of technicianID on the server.
func (r *firestoreRepository) Stats(ctx context.Context, technicianID string) (Stats, error) {
	res, err := r.reviews.Where(string(sanitizer.ReviewTechnicianID), "==", technicianID).
		NewAggregationQuery().
		WithCount("count").
		WithAvg(string(sanitizer.ReviewRating), "average").
		Get(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate reviews: %w", err)
	}
	var st Stats
	if v, ok := res["count"].(*firestorepb.Value); ok {
		st.Count = v.GetIntegerValue()
	}
	if v, ok := res["average"].(*firestorepb.Value); ok {
		st.Average = v.GetDoubleValue()
	}
	return st, nil
}
