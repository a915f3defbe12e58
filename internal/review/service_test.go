package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/sanitizer"
)

// MockRepository is a mock type for review.Repository. CreateForService runs the check against
// the service record configured with the call.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, id string) (sanitizer.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(sanitizer.Record), args.Error(1)
}

func (m *MockRepository) CreateForService(ctx context.Context, serviceID string, review sanitizer.Record, check ServiceCheck) (string, error) {
	args := m.Called(ctx, serviceID, review, check)
	if service, ok := args.Get(2).(sanitizer.Record); ok {
		if err := check(service); err != nil {
			return "", err
		}
	}
	return args.String(0), args.Error(1)
}

func (m *MockRepository) ListByTechnician(ctx context.Context, technicianID string, page, pageSize int) ([]sanitizer.Record, int64, error) {
	args := m.Called(ctx, technicianID, page, pageSize)
	return args.Get(0).([]sanitizer.Record), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Stats(ctx context.Context, technicianID string) (Stats, error) {
	args := m.Called(ctx, technicianID)
	return args.Get(0).(Stats), args.Error(1)
}

// MockUsers is a mock type for RatingUpdater
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Lookup(ctx context.Context, uid string) (sanitizer.Record, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(sanitizer.Record), args.Error(1)
}

func (m *MockUsers) UpdateRating(ctx context.Context, technicianID string, rating float64, count int64) error {
	return m.Called(ctx, technicianID, rating, count).Error(0)
}

var (
	client = common.Requester{UID: "c1", Role: common.RoleClient}
	now    = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *MockRepository, *MockUsers) {
	t.Helper()
	s, err := sanitizer.NewDefault()
	require.NoError(t, err)
	repo := new(MockRepository)
	users := new(MockUsers)
	svc := NewService(repo, users, s, nil, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, repo, users
}

func completedService() sanitizer.Record {
	return sanitizer.Record{
		"clientId":     "c1",
		"technicianId": "t1",
		"status":       "completed",
		"hasReview":    false,
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	req := CreateRequest{ServiceID: "s1", Rating: 4, Comment: " Great <b>work</b> "}

	svc, repo, users := newTestService(t)
	users.On("Lookup", ctx, "c1").Return(sanitizer.Record{"displayName": "Cliente"}, nil)
	repo.On("CreateForService", ctx, "s1", mock.Anything, mock.Anything).Return("r1", nil, completedService())
	repo.On("Stats", ctx, "t1").Return(Stats{Average: 4.333333, Count: 3}, nil)
	users.On("UpdateRating", ctx, "t1", 4.3, int64(3)).Return(nil)

	res, err := svc.Create(ctx, client, req)
	require.NoError(t, err)
	assert.Equal(t, "r1", res.ID)
	assert.Equal(t, sanitizer.Record{
		"id":           "r1",
		"rating":       int64(4),
		"comment":      "Great bwork/b",
		"createdAt":    now,
		"clientId":     "c1",
		"serviceId":    "s1",
		"technicianId": "t1",
	}, res.Attributes, "client name is stored but never returned")
	repo.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestService_Create_Rejections(t *testing.T) {
	ctx := context.Background()
	req := CreateRequest{ServiceID: "s1", Rating: 5, Comment: "Excellent"}

	tests := []struct {
		name    string
		service func() sanitizer.Record
		want    error
	}{
		{"not the client", func() sanitizer.Record { s := completedService(); s["clientId"] = "c2"; return s }, common.ErrForbidden},
		{"not completed", func() sanitizer.Record { s := completedService(); s["status"] = "in_progress"; return s }, common.ErrConflict},
		{"already reviewed", func() sanitizer.Record { s := completedService(); s["hasReview"] = true; return s }, common.ErrConflict},
		{"no technician", func() sanitizer.Record { s := completedService(); s["technicianId"] = ""; return s }, common.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, users := newTestService(t)
			users.On("Lookup", ctx, "c1").Return(nil, common.ErrNotFound)
			repo.On("CreateForService", ctx, "s1", mock.Anything, mock.Anything).Return("r1", nil, tt.service())

			_, err := svc.Create(ctx, client, req)
			assert.ErrorIs(t, err, tt.want)
			repo.AssertNotCalled(t, "Stats", mock.Anything, mock.Anything)
		})
	}

	t.Run("technicians cannot review", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		_, err := svc.Create(ctx, common.Requester{UID: "t1", Role: common.RoleTechnician}, req)
		assert.ErrorIs(t, err, common.ErrForbidden)
		repo.AssertNotCalled(t, "CreateForService", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_Create_RatingFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	svc, repo, users := newTestService(t)
	users.On("Lookup", ctx, "c1").Return(sanitizer.Record{}, nil)
	repo.On("CreateForService", ctx, "s1", mock.Anything, mock.Anything).Return("r1", nil, completedService())
	repo.On("Stats", ctx, "t1").Return(Stats{}, errors.New("aggregation unavailable"))

	res, err := svc.Create(ctx, client, CreateRequest{ServiceID: "s1", Rating: 3, Comment: "Fine job"})
	require.NoError(t, err)
	assert.Equal(t, "r1", res.ID)
	users.AssertNotCalled(t, "UpdateRating", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Create_LogsUnresolvedClientName(t *testing.T) {
	ctx := context.Background()
	svc, repo, users := newTestService(t)
	core, logs := observer.New(zap.WarnLevel)
	svc.logger = zap.New(core)

	users.On("Lookup", ctx, "c1").Return(nil, errors.New("firestore unavailable"))
	repo.On("CreateForService", ctx, "s1", mock.MatchedBy(func(r sanitizer.Record) bool {
		return r.String("clientName") == ""
	}), mock.Anything).Return("r1", nil, completedService())
	repo.On("Stats", ctx, "t1").Return(Stats{Average: 5, Count: 1}, nil)
	users.On("UpdateRating", ctx, "t1", 5.0, int64(1)).Return(nil)

	res, err := svc.Create(ctx, client, CreateRequest{ServiceID: "s1", Rating: 5, Comment: "Fine job"})
	require.NoError(t, err)
	assert.Equal(t, "r1", res.ID)

	entries := logs.FilterMessage("Failed to resolve reviewer name").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "c1", entries[0].ContextMap()["uid"])
	repo.AssertExpectations(t)
}

func TestService_ListForTechnician(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)
	records := []sanitizer.Record{
		{"id": "r1", "rating": int64(5), "comment": "Top", "createdAt": now, "clientId": "c1", "technicianId": "t1", "serviceId": "s1", "clientName": "Cliente"},
		{"id": "r2", "rating": int64(3), "clientId": "c2", "technicianId": "t1", "serviceId": "s2"},
	}
	repo.On("ListByTechnician", ctx, "t1", 1, 10).Return(records, int64(2), nil)

	items, pagination, err := svc.ListForTechnician(ctx, client, "t1", 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), pagination.TotalItems)

	own := items[0].Attributes.(sanitizer.Record)
	assert.Equal(t, "s1", own["serviceId"])
	assert.NotContains(t, own, "clientName")

	other := items[1].Attributes.(sanitizer.Record)
	assert.NotContains(t, other, "clientId")
	assert.Contains(t, other, "comment")
	assert.Nil(t, other["comment"], "always-fields are present even when missing")
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)
	repo.On("Get", ctx, "r1").Return(sanitizer.Record{"id": "r1", "rating": int64(4), "clientId": "c1", "technicianId": "t1"}, nil)
	repo.On("Get", ctx, "missing").Return(nil, common.ErrNotFound)

	technician, err := svc.Get(ctx, common.Requester{UID: "t1", Role: common.RoleTechnician}, "r1")
	require.NoError(t, err)
	assert.Contains(t, technician.Attributes, "technicianId")

	anon, err := svc.Get(ctx, common.Requester{}, "r1")
	require.NoError(t, err)
	assert.NotContains(t, anon.Attributes, "clientId")

	_, err = svc.Get(ctx, client, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
