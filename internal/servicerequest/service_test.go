package servicerequest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/loginsecurity"
	"teknigo_backend/internal/sanitizer"
)

type memoryRepository struct {
	mu   sync.Mutex
	next int
	docs map[string]sanitizer.Record
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{docs: map[string]sanitizer.Record{}}
}

func (r *memoryRepository) Get(_ context.Context, id string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &Document{ID: id, Data: data.Clone()}, nil
}

func (r *memoryRepository) Create(_ context.Context, data sanitizer.Record) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := fmt.Sprintf("svc%d", r.next)
	r.docs[id] = data.Clone()
	return id, nil
}

func (r *memoryRepository) List(_ context.Context, filter ListFilter, page, pageSize int) ([]Document, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Document
	for id, data := range r.docs {
		d := Document{ID: id, Data: data.Clone()}
		switch {
		case filter.ClientID != "" && d.clientID() != filter.ClientID,
			filter.TechnicianID != "" && d.technicianID() != filter.TechnicianID,
			filter.Unassigned && d.technicianID() != "",
			filter.Status != "" && d.status() != filter.Status:
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memoryRepository) Mutate(_ context.Context, id string, fn MutateFunc) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	fields, err := fn(Document{ID: id, Data: data.Clone()})
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		data[k] = v
	}
	return &Document{ID: id, Data: data.Clone()}, nil
}

type profileMap map[string]sanitizer.Record

func (p profileMap) Lookup(_ context.Context, uid string) (sanitizer.Record, error) {
	rec, ok := p[uid]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

type stubLimiter struct {
	allowed bool
}

func (l stubLimiter) Allow(context.Context, string, loginsecurity.Category) loginsecurity.Decision {
	if l.allowed {
		return loginsecurity.Decision{Allowed: true, Remaining: 1}
	}
	return loginsecurity.Decision{RetryAfter: 30 * time.Minute}
}

var (
	client     = common.Requester{UID: "c1", Role: common.RoleClient}
	otherUser  = common.Requester{UID: "c2", Role: common.RoleClient}
	technician = common.Requester{UID: "t1", Role: common.RoleTechnician}
	otherTech  = common.Requester{UID: "t2", Role: common.RoleTechnician}
	admin      = common.Requester{UID: "a1", Role: common.RoleAdmin}
)

func newTestService(t *testing.T) (*Service, *memoryRepository) {
	t.Helper()
	s, err := sanitizer.NewDefault()
	require.NoError(t, err)
	profiles := profileMap{
		"c1": {"displayName": "Cliente", "email": "c1@gmail.com", "userType": "client"},
		"t1": {"displayName": "Tecnico", "email": "t1@gmail.com", "userType": "technician"},
		"t2": {"displayName": "Otro", "email": "t2@gmail.com", "userType": "technician"},
		"t3": {"displayName": "Baja", "userType": "technician", "disabled": true},
	}
	repo := newMemoryRepository()
	svc := NewService(repo, profiles, stubLimiter{allowed: true}, s, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func validRequest() CreateRequest {
	budget := 150.0
	return CreateRequest{
		ServiceType: "Plumbing",
		Description: "Leaking <script>pipe</script> under the sink",
		ServiceArea: "Miraflores",
		Location:    "Av. Larco 123",
		Budget:      &budget,
	}
}

func createRequest(t *testing.T, svc *Service, req CreateRequest) string {
	t.Helper()
	res, err := svc.Create(context.Background(), client, req)
	require.NoError(t, err)
	return res.ID
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusInProgress, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusPending, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("client creates pending request", func(t *testing.T) {
		svc, repo := newTestService(t)
		res, err := svc.Create(ctx, client, validRequest())
		require.NoError(t, err)

		attrs := res.Attributes.(sanitizer.Record)
		assert.Equal(t, "pending", attrs["status"])
		assert.Equal(t, "Leaking scriptpipe/script under the sink", attrs["description"])
		assert.Equal(t, "Cliente", attrs["clientName"])
		assert.Equal(t, "c1", attrs["clientId"], "owners get the full record")
		assert.Equal(t, 150.0, attrs["budget"])

		stored := repo.docs[res.ID]
		assert.Equal(t, "", stored["technicianId"])
		assert.Equal(t, sanitizer.SchemaVersion, stored[sanitizer.SchemaVersionKey])
	})

	t.Run("only clients", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Create(ctx, technician, validRequest())
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("rate limited", func(t *testing.T) {
		svc, _ := newTestService(t)
		svc.limiter = stubLimiter{allowed: false}
		_, err := svc.Create(ctx, client, validRequest())
		assert.ErrorIs(t, err, common.ErrTooManyRequests)
	})

	t.Run("direct request to a technician", func(t *testing.T) {
		svc, _ := newTestService(t)
		req := validRequest()
		req.TechnicianID = "t1"
		res, err := svc.Create(ctx, client, req)
		require.NoError(t, err)
		assert.Equal(t, "Tecnico", res.Attributes.(sanitizer.Record)["technicianName"])
	})

	t.Run("unknown or disabled technician", func(t *testing.T) {
		svc, _ := newTestService(t)
		for _, id := range []string{"ghost", "t3", "c1"} {
			req := validRequest()
			req.TechnicianID = id
			_, err := svc.Create(ctx, client, req)
			assert.ErrorIs(t, err, common.ErrUnprocessableEntity, id)
		}
	})
}

func TestService_Get_SanitizesByParticipant(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	id := createRequest(t, svc, validRequest())

	outsider, err := svc.Get(ctx, otherUser, id)
	require.NoError(t, err)
	attrs := outsider.Attributes.(sanitizer.Record)
	assert.Contains(t, attrs, "serviceType")
	assert.NotContains(t, attrs, "description")
	assert.NotContains(t, attrs, "clientId")

	anon, err := svc.Get(ctx, common.Requester{}, id)
	require.NoError(t, err)
	assert.Equal(t, attrs, anon.Attributes)

	full, err := svc.Get(ctx, admin, id)
	require.NoError(t, err)
	assert.Contains(t, full.Attributes, "clientEmail")
}

func TestService_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("technician accepts open request", func(t *testing.T) {
		svc, _ := newTestService(t)
		id := createRequest(t, svc, validRequest())

		res, err := svc.Accept(ctx, technician, id)
		require.NoError(t, err)
		attrs := res.Attributes.(sanitizer.Record)
		assert.Equal(t, "accepted", attrs["status"])
		assert.Equal(t, "t1", attrs["technicianId"])
		assert.Equal(t, "t1@gmail.com", attrs["technicianEmail"])

		_, err = svc.Accept(ctx, otherTech, id)
		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("assigned to another technician", func(t *testing.T) {
		svc, _ := newTestService(t)
		req := validRequest()
		req.TechnicianID = "t1"
		id := createRequest(t, svc, req)

		_, err := svc.Accept(ctx, otherTech, id)
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("clients cannot accept", func(t *testing.T) {
		svc, _ := newTestService(t)
		id := createRequest(t, svc, validRequest())
		_, err := svc.Accept(ctx, client, id)
		assert.ErrorIs(t, err, common.ErrForbidden)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("technician drives the lifecycle", func(t *testing.T) {
		svc, repo := newTestService(t)
		id := createRequest(t, svc, validRequest())
		_, err := svc.UpdateStatus(ctx, technician, id, StatusAccepted)
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, technician, id, StatusInProgress)
		require.NoError(t, err)
		res, err := svc.UpdateStatus(ctx, technician, id, StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, "completed", res.Attributes.(sanitizer.Record)["status"])
		assert.Contains(t, repo.docs[id], "completedAt")

		_, err = svc.UpdateStatus(ctx, client, id, StatusCancelled)
		assert.ErrorIs(t, err, common.ErrConflict, "completed is terminal")
	})

	t.Run("client may only cancel", func(t *testing.T) {
		svc, repo := newTestService(t)
		id := createRequest(t, svc, validRequest())

		_, err := svc.UpdateStatus(ctx, client, id, StatusInProgress)
		assert.ErrorIs(t, err, common.ErrForbidden)

		_, err = svc.UpdateStatus(ctx, client, id, StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, "c1", repo.docs[id]["cancelledBy"])
	})

	t.Run("invalid transition", func(t *testing.T) {
		svc, _ := newTestService(t)
		id := createRequest(t, svc, validRequest())
		_, err := svc.UpdateStatus(ctx, admin, id, StatusCompleted)
		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("outsiders", func(t *testing.T) {
		svc, _ := newTestService(t)
		id := createRequest(t, svc, validRequest())
		_, err := svc.UpdateStatus(ctx, otherUser, id, StatusCancelled)
		assert.ErrorIs(t, err, common.ErrForbidden)
		_, err = svc.UpdateStatus(ctx, common.Requester{}, id, StatusCancelled)
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("missing request", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.UpdateStatus(ctx, admin, "nope", StatusCancelled)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestService_Listings(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	open := createRequest(t, svc, validRequest())
	taken := createRequest(t, svc, validRequest())
	_, err := svc.Accept(ctx, technician, taken)
	require.NoError(t, err)

	mine, pagination, err := svc.ListMine(ctx, client, 1, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, int64(2), pagination.TotalItems)

	assigned, _, err := svc.ListMine(ctx, technician, 1, 10)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, taken, assigned[0].ID)
	assert.Contains(t, assigned[0].Attributes, "description", "assigned technician is a participant")

	openList, _, err := svc.ListOpen(ctx, otherTech, 1, 10)
	require.NoError(t, err)
	require.Len(t, openList, 1)
	assert.Equal(t, open, openList[0].ID)
	assert.NotContains(t, openList[0].Attributes, "clientEmail")

	_, _, err = svc.ListOpen(ctx, client, 1, 10)
	assert.ErrorIs(t, err, common.ErrForbidden)
	_, _, err = svc.ListMine(ctx, common.Requester{}, 1, 10)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
