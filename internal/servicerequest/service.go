package servicerequest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/loginsecurity"
	"teknigo_backend/internal/platform/metrics"
	"teknigo_backend/internal/sanitizer"
)

// ProfileLookup reads stored profiles. Implemented by user.Service.
type ProfileLookup interface {
	Lookup(ctx context.Context, uid string) (sanitizer.Record, error)
}

// Limiter is implemented by loginsecurity.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, identifier string, category loginsecurity.Category) loginsecurity.Decision
}

// Service implements service request operations.
type Service struct {
	repo      Repository
	profiles  ProfileLookup
	limiter   Limiter
	sanitizer *sanitizer.Sanitizer
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new service request service.
func NewService(
	repo Repository,
	profiles ProfileLookup,
	limiter Limiter,
	s *sanitizer.Sanitizer,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		profiles:  profiles,
		limiter:   limiter,
		sanitizer: s,
		metrics:   m,
		logger:    logger.Named("service_requests"),
		now:       time.Now,
	}
}

// Create stores a new pending request for the requesting client.
func (s *Service) Create(ctx context.Context, requester common.Requester, req CreateRequest) (*common.Resource, error) {
	if requester.Role != common.RoleClient {
		return nil, common.ErrForbidden.WithDetails("Only clients can create service requests.")
	}
	if d := s.limiter.Allow(ctx, requester.UID, loginsecurity.CategoryServiceRequest); !d.Allowed {
		return nil, common.ErrTooManyRequests.WithDetails(
			"Too many service requests. Please try again in " + loginsecurity.FormatBlockTime(d.RetryAfter) + ".")
	}

	client, err := s.profiles.Lookup(ctx, requester.UID)
	if err != nil {
		return nil, fmt.Errorf("load client profile: %w", err)
	}

	now := s.now()
	data := sanitizer.Record{
		string(sanitizer.ServiceType):            sanitizer.Text(req.ServiceType, shortTextMaxLength),
		string(sanitizer.ServiceDescription):     sanitizer.Text(req.Description, descriptionMaxLength),
		string(sanitizer.ServiceArea):            sanitizer.Text(req.ServiceArea, shortTextMaxLength),
		string(sanitizer.ServiceLocation):        sanitizer.Text(req.Location, shortTextMaxLength),
		string(sanitizer.ServiceUrgent):          req.Urgent,
		string(sanitizer.ServicePreferredDate):   strings.TrimSpace(req.PreferredDate),
		string(sanitizer.ServicePreferredTime):   sanitizer.Text(req.PreferredTime, shortTextMaxLength),
		string(sanitizer.ServiceAdditionalNotes): sanitizer.Text(req.AdditionalNotes, notesMaxLength),
		string(sanitizer.ServiceStatus):          string(StatusPending),
		string(sanitizer.ServiceClientID):        requester.UID,
		string(sanitizer.ServiceClientName):      client.String(string(sanitizer.UserDisplayName)),
		string(sanitizer.ServiceClientEmail):     client.String(string(sanitizer.UserEmail)),
		string(sanitizer.ServiceTechnicianID):    "",
		string(sanitizer.ServiceHasReview):       false,
		string(sanitizer.ServicePaymentStatus):   PaymentPending,
		string(sanitizer.ServiceCreatedAt):       now,
		string(sanitizer.ServiceUpdatedAt):       now,
		sanitizer.SchemaVersionKey:               sanitizer.SchemaVersion,
	}
	if req.Budget != nil {
		data[string(sanitizer.ServiceBudget)] = *req.Budget
	}
	if req.TechnicianID != "" {
		tech, err := s.technician(ctx, req.TechnicianID)
		if err != nil {
			return nil, err
		}
		data[string(sanitizer.ServiceTechnicianID)] = req.TechnicianID
		data[string(sanitizer.ServiceTechnicianName)] = tech.String(string(sanitizer.UserDisplayName))
		data[string(sanitizer.ServiceTechnicianEmail)] = tech.String(string(sanitizer.UserEmail))
	}

	id, err := s.repo.Create(ctx, data)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Service request created", zap.String("id", id), zap.String("clientId", requester.UID))
	return s.resource(Document{ID: id, Data: data}, requester), nil
}

// Get returns a request as requester may see it.
func (s *Service) Get(ctx context.Context, requester common.Requester, id string) (*common.Resource, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resource(*doc, requester), nil
}

// ListMine lists the requests a client created or a technician is assigned to. Admins see all.
func (s *Service) ListMine(ctx context.Context, requester common.Requester, page, pageSize int) ([]common.Resource, *common.Pagination, error) {
	var filter ListFilter
	switch requester.Role {
	case common.RoleClient:
		filter.ClientID = requester.UID
	case common.RoleTechnician:
		filter.TechnicianID = requester.UID
	case common.RoleAdmin:
	default:
		return nil, nil, common.ErrUnauthorized
	}
	return s.list(ctx, requester, filter, page, pageSize)
}

// ListOpen lists pending requests nobody has accepted yet.
func (s *Service) ListOpen(ctx context.Context, requester common.Requester, page, pageSize int) ([]common.Resource, *common.Pagination, error) {
	if requester.Role != common.RoleTechnician && !requester.IsAdmin() {
		return nil, nil, common.ErrForbidden.WithDetails("Only technicians can browse open service requests.")
	}
	return s.list(ctx, requester, ListFilter{Status: StatusPending, Unassigned: true}, page, pageSize)
}

// Accept assigns a pending request to the requesting technician. A request created for a
// specific technician can only be accepted by that technician.
func (s *Service) Accept(ctx context.Context, requester common.Requester, id string) (*common.Resource, error) {
	if requester.Role != common.RoleTechnician {
		return nil, common.ErrForbidden.WithDetails("Only technicians can accept service requests.")
	}
	tech, err := s.technician(ctx, requester.UID)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.Mutate(ctx, id, func(cur Document) (map[string]interface{}, error) {
		if cur.status() != StatusPending {
			return nil, common.ErrConflict.WithDetails("Only pending service requests can be accepted.")
		}
		if assigned := cur.technicianID(); assigned != "" && assigned != requester.UID {
			return nil, common.ErrForbidden.WithDetails("This service request is assigned to another technician.")
		}
		now := s.now()
		return map[string]interface{}{
			string(sanitizer.ServiceStatus):          string(StatusAccepted),
			string(sanitizer.ServiceTechnicianID):    requester.UID,
			string(sanitizer.ServiceTechnicianName):  tech.String(string(sanitizer.UserDisplayName)),
			string(sanitizer.ServiceTechnicianEmail): tech.String(string(sanitizer.UserEmail)),
			"acceptedAt":                             now,
			string(sanitizer.ServiceUpdatedAt):       now,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Service request accepted", zap.String("id", id), zap.String("technicianId", requester.UID))
	return s.resource(*doc, requester), nil
}

// UpdateStatus moves a request along its lifecycle. Clients may only cancel their own requests;
// the assigned technician drives the rest. Admins may apply any valid transition.
func (s *Service) UpdateStatus(ctx context.Context, requester common.Requester, id string, to Status) (*common.Resource, error) {
	if !requester.IsAuthenticated() {
		return nil, common.ErrUnauthorized
	}
	if to == StatusAccepted {
		return s.Accept(ctx, requester, id)
	}
	doc, err := s.repo.Mutate(ctx, id, func(cur Document) (map[string]interface{}, error) {
		switch {
		case requester.IsAdmin():
		case requester.UID == cur.clientID():
			if to != StatusCancelled {
				return nil, common.ErrForbidden.WithDetails("Clients can only cancel their service requests.")
			}
		case requester.UID == cur.technicianID():
		default:
			return nil, common.ErrForbidden
		}
		from := cur.status()
		if !CanTransition(from, to) {
			return nil, common.ErrConflict.WithDetails(fmt.Sprintf("Cannot change status from %s to %s.", from, to))
		}
		now := s.now()
		fields := map[string]interface{}{
			string(sanitizer.ServiceStatus):    string(to),
			string(sanitizer.ServiceUpdatedAt): now,
		}
		switch to {
		case StatusCompleted:
			fields["completedAt"] = now
		case StatusCancelled:
			fields["cancelledAt"] = now
			fields["cancelledBy"] = requester.UID
		}
		return fields, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Service request status changed", zap.String("id", id), zap.String("status", string(to)))
	return s.resource(*doc, requester), nil
}

// Document returns the stored request without sanitization, for server-side checks.
func (s *Service) Document(ctx context.Context, id string) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) list(ctx context.Context, requester common.Requester, filter ListFilter, page, pageSize int) ([]common.Resource, *common.Pagination, error) {
	docs, total, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, nil, err
	}
	out := make([]common.Resource, 0, len(docs))
	for _, doc := range docs {
		out = append(out, common.Resource{
			ID:         doc.ID,
			Attributes: s.sanitizer.Service(doc.Data, requester.Role, doc.IsParticipant(requester.UID)),
		})
	}
	s.metrics.Sanitized("service", requester.Role.String(), len(out))
	return out, common.NewPagination(total, page, pageSize), nil
}

func (s *Service) resource(doc Document, requester common.Requester) *common.Resource {
	s.metrics.Sanitized("service", requester.Role.String(), 1)
	return &common.Resource{
		ID:         doc.ID,
		Attributes: s.sanitizer.Service(doc.Data, requester.Role, doc.IsParticipant(requester.UID)),
	}
}

func (s *Service) technician(ctx context.Context, uid string) (sanitizer.Record, error) {
	rec, err := s.profiles.Lookup(ctx, uid)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnprocessableEntity.WithDetails("Technician not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load technician profile: %w", err)
	}
	if common.ParseRole(rec.String(string(sanitizer.UserType))) != common.RoleTechnician ||
		rec.Bool(string(sanitizer.UserDisabled)) {
		return nil, common.ErrUnprocessableEntity.WithDetails("Technician not found.")
	}
	return rec, nil
}
