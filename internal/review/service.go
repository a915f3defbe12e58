package review

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/platform/metrics"
	"teknigo_backend/internal/sanitizer"
)

// RatingUpdater stores a technician's review aggregate. Implemented by user.Service.
type RatingUpdater interface {
	Lookup(ctx context.Context, uid string) (sanitizer.Record, error)
	UpdateRating(ctx context.Context, technicianID string, rating float64, count int64) error
}

// Service implements review operations.
type Service struct {
	repo      Repository
	users     RatingUpdater
	sanitizer *sanitizer.Sanitizer
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new review service.
func NewService(repo Repository, users RatingUpdater, s *sanitizer.Sanitizer, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		sanitizer: s,
		metrics:   m,
		logger:    logger.Named("reviews"),
		now:       time.Now,
	}
}

// Create stores the requesting client's review of a completed service and refreshes the
// technician's rating.
func (s *Service) Create(ctx context.Context, requester common.Requester, req CreateRequest) (*common.Resource, error) {
	if requester.Role != common.RoleClient {
		return nil, common.ErrForbidden.WithDetails("Only clients can review services.")
	}

	clientName := ""
	if profile, err := s.users.Lookup(ctx, requester.UID); err != nil {
		s.logger.Warn("Failed to resolve reviewer name", zap.Error(err), zap.String("uid", requester.UID))
	} else {
		clientName = profile.String(string(sanitizer.UserDisplayName))
	}

	data := sanitizer.Record{
		string(sanitizer.ReviewRating):     int64(req.Rating),
		string(sanitizer.ReviewComment):    sanitizer.Text(req.Comment, CommentMaxLength),
		string(sanitizer.ReviewCreatedAt):  s.now(),
		string(sanitizer.ReviewClientID):   requester.UID,
		string(sanitizer.ReviewClientName): clientName,
		string(sanitizer.ReviewServiceID):  req.ServiceID,
		sanitizer.SchemaVersionKey:         sanitizer.SchemaVersion,
	}

	var technicianID string
	id, err := s.repo.CreateForService(ctx, req.ServiceID, data, func(service sanitizer.Record) error {
		if service.String(string(sanitizer.ServiceClientID)) != requester.UID {
			return common.ErrForbidden.WithDetails("You can only review your own service requests.")
		}
		if service.String(string(sanitizer.ServiceStatus)) != "completed" {
			return common.ErrConflict.WithDetails("Only completed services can be reviewed.")
		}
		if service.Bool(string(sanitizer.ServiceHasReview)) {
			return common.ErrConflict.WithDetails("This service has already been reviewed.")
		}
		technicianID = service.String(string(sanitizer.ServiceTechnicianID))
		if technicianID == "" {
			return common.ErrConflict.WithDetails("This service has no assigned technician.")
		}
		data[string(sanitizer.ReviewTechnicianID)] = technicianID
		return nil
	})
	if err != nil {
		return nil, err
	}
	data[string(sanitizer.ReviewID)] = id

	if err := s.refreshRating(ctx, technicianID); err != nil {
		s.logger.Error("Failed to refresh technician rating", zap.Error(err), zap.String("technicianId", technicianID))
	}
	s.logger.Info("Review created", zap.String("id", id), zap.String("serviceId", req.ServiceID))
	return s.resource(id, data, requester), nil
}

// Get returns a review as requester may see it.
func (s *Service) Get(ctx context.Context, requester common.Requester, id string) (*common.Resource, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resource(id, rec, requester), nil
}

// ListForTechnician returns a page of technicianID's reviews, newest first.
func (s *Service) ListForTechnician(ctx context.Context, requester common.Requester, technicianID string, page, pageSize int) ([]common.Resource, *common.Pagination, error) {
	records, total, err := s.repo.ListByTechnician(ctx, technicianID, page, pageSize)
	if err != nil {
		return nil, nil, err
	}
	out := make([]common.Resource, 0, len(records))
	for _, rec := range records {
		out = append(out, common.Resource{
			ID:         rec.String(string(sanitizer.ReviewID)),
			Attributes: s.sanitizer.Review(rec, requester.Role, isOwner(rec, requester)),
		})
	}
	s.metrics.Sanitized("review", requester.Role.String(), len(out))
	return out, common.NewPagination(total, page, pageSize), nil
}

func (s *Service) refreshRating(ctx context.Context, technicianID string) error {
	st, err := s.repo.Stats(ctx, technicianID)
	if err != nil {
		return err
	}
	rating := math.Round(st.Average*10) / 10
	if err := s.users.UpdateRating(ctx, technicianID, rating, st.Count); err != nil {
		return fmt.Errorf("store rating: %w", err)
	}
	return nil
}

func (s *Service) resource(id string, rec sanitizer.Record, requester common.Requester) *common.Resource {
	s.metrics.Sanitized("review", requester.Role.String(), 1)
	return &common.Resource{ID: id, Attributes: s.sanitizer.Review(rec, requester.Role, isOwner(rec, requester))}
}

// isOwner reports whether requester is the review's client or technician.
func isOwner(rec sanitizer.Record, requester common.Requester) bool {
	if !requester.IsAuthenticated() {
		return false
	}
	return requester.UID == rec.String(string(sanitizer.ReviewClientID)) ||
		requester.UID == rec.String(string(sanitizer.ReviewTechnicianID))
}
