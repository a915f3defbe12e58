package database

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"teknigo_backend/internal/common"
)

// Firestore collections and documents.
const (
	UsersCollection    = "users"
	ServicesCollection = "services"
	ReviewsCollection  = "reviews"
	ConfigCollection   = "config"
	AppConfigDoc       = "app"
)

// IsNotFound reports whether err is a Firestore NotFound status.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// IsAlreadyExists reports whether err is a Firestore AlreadyExists status.
func IsAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// MapFirestoreError converts the common Firestore statuses into API errors and wraps the rest.
func MapFirestoreError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return common.ErrNotFound.WithDetails(what + " not found.")
	case IsAlreadyExists(err):
		return common.ErrConflict.WithDetails(what + " already exists.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("firestore %s: %w", what, err)
}

// Count runs a server-side count aggregation over q.
func Count(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	v, ok := res["total"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("count query: unexpected result type %T", res["total"])
	}
	return v.GetIntegerValue(), nil
}

// PageQuery applies offset pagination to q.
func PageQuery(q firestore.Query, page, pageSize int) firestore.Query {
	if page < 1 {
		page = 1
	}
	return q.Offset((page - 1) * pageSize).Limit(pageSize)
}
