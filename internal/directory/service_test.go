package directory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/config"
	es "teknigo_backend/internal/platform/elasticsearch"
	"teknigo_backend/internal/sanitizer"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeES answers the handful of Elasticsearch endpoints the directory uses.
type fakeES struct {
	mu       sync.Mutex
	requests []recordedRequest
	search   string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/technicians/_doc/"):
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = io.WriteString(w, f.search)
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		lines := strings.Count(strings.TrimSpace(string(body)), "\n") + 1
		var items []string
		for i := 0; i < lines/2; i++ {
			items = append(items, `{"index":{"_id":"x","status":201}}`)
		}
		_, _ = io.WriteString(w, `{"errors":false,"items":[`+strings.Join(items, ",")+`]}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func (f *fakeES) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestService(t *testing.T) (*Service, *fakeES) {
	t.Helper()
	fake := &fakeES{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	s, err := sanitizer.NewDefault()
	require.NoError(t, err)
	svc := NewService(&es.ESClientWrapper{Client: client}, &config.Config{}, s, nil, zap.NewNop())
	return svc, fake
}

func technician(uid string) sanitizer.Record {
	return sanitizer.Record{
		"uid":          uid,
		"email":        uid + "@gmail.com",
		"displayName":  "Técnico " + uid,
		"userType":     "technician",
		"rating":       4.5,
		"specialties":  []interface{}{"Gasfitería", "Electricidad"},
		"serviceAreas": []string{"San Isidro"},
		"disabled":     false,
	}
}

func TestDocument(t *testing.T) {
	s, err := sanitizer.NewDefault()
	require.NoError(t, err)

	got := Document(s, technician("t1"))
	want := sanitizer.Record{
		"displayName":      "Técnico t1",
		"userType":         "technician",
		"rating":           4.5,
		"specialties":      []interface{}{"Gasfitería", "Electricidad"},
		"serviceAreas":     []string{"San Isidro"},
		"specialtySlugs":   []string{"gasfiteria", "electricidad"},
		"serviceAreaSlugs": []string{"san-isidro"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Document() mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, Document(s, nil))
}

func TestService_Disabled(t *testing.T) {
	s, err := sanitizer.NewDefault()
	require.NoError(t, err)
	svc := NewService(nil, &config.Config{}, s, nil, zap.NewNop())
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.IndexTechnician(ctx, "t1", technician("t1")))
	assert.NoError(t, svc.RemoveTechnician(ctx, "t1"))
	assert.NoError(t, svc.EnsureIndex(ctx))
	_, _, err = svc.Search(ctx, SearchQuery{})
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	_, err = svc.Reindex(ctx, nil, 10)
	assert.Error(t, err)
}

func TestService_IndexTechnician(t *testing.T) {
	svc, fake := newTestService(t)
	require.NoError(t, svc.IndexTechnician(context.Background(), "t1", technician("t1")))

	req := fake.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/technicians/_doc/t1", req.Path)
	assert.NotContains(t, req.Body, "t1@gmail.com", "restricted fields never reach the index")
	assert.NotContains(t, req.Body, `"uid"`)
	assert.Contains(t, req.Body, `"specialtySlugs":["gasfiteria","electricidad"]`)
}

func TestService_RemoveTechnician_MissingIsNotAnError(t *testing.T) {
	svc, fake := newTestService(t)
	require.NoError(t, svc.RemoveTechnician(context.Background(), "gone"))
	assert.Equal(t, "/technicians/_doc/gone", fake.last().Path)
}

func TestService_Search(t *testing.T) {
	svc, fake := newTestService(t)
	fake.search = `{"hits":{"total":{"value":11},"hits":[
		{"_id":"t1","_source":{"displayName":"Ana","userType":"technician","rating":4.9,"specialtySlugs":["gasfiteria"]}}
	]}}`

	items, pagination, err := svc.Search(context.Background(), SearchQuery{Text: "ana", Specialty: "Gasfitería", Page: 2, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "t1", items[0].ID)
	assert.Equal(t, sanitizer.Record{"displayName": "Ana", "userType": "technician", "rating": 4.9}, items[0].Attributes)
	assert.Equal(t, int64(11), pagination.TotalItems)
	assert.Equal(t, 3, pagination.TotalPages)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(fake.last().Body), &body))
	filter := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"specialtySlugs": "gasfiteria"}}, filter[0])
}

func TestBuildQuery_MatchAllWithoutText(t *testing.T) {
	q := buildQuery(SearchQuery{})
	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.NotContains(t, boolQuery, "filter")
	assert.Equal(t, []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}, boolQuery["must"])
}

type pagedSource struct {
	pages [][]sanitizer.Record
}

func (p pagedSource) TechniciansForIndex(_ context.Context, page, _ int) ([]sanitizer.Record, error) {
	if page > len(p.pages) {
		return nil, nil
	}
	return p.pages[page-1], nil
}

func TestService_Reindex(t *testing.T) {
	svc, fake := newTestService(t)
	source := pagedSource{pages: [][]sanitizer.Record{
		{technician("t1"), technician("t2")},
		{technician("t3"), {"displayName": "no uid"}},
		{},
	}}

	res, err := svc.Reindex(context.Background(), source, 2)
	require.NoError(t, err)
	assert.Equal(t, ReindexResult{Indexed: 3, Failed: 1}, res)

	var bulkCalls int
	for _, r := range fake.requests {
		if strings.HasSuffix(r.Path, "/_bulk") {
			bulkCalls++
			assert.NotContains(t, r.Body, "@gmail.com")
		}
	}
	assert.Equal(t, 2, bulkCalls)
}

type staticLister struct{}

func (staticLister) ListTechnicians(_ context.Context, _ common.Requester, page, pageSize int) ([]common.Resource, *common.Pagination, error) {
	return []common.Resource{{ID: "t1"}}, common.NewPagination(1, page, pageSize), nil
}

func TestHandler_FallsBackWhenDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := sanitizer.NewDefault()
	require.NoError(t, err)
	svc := NewService(nil, &config.Config{}, s, nil, zap.NewNop())
	router := gin.New()
	NewHandler(svc, staticLister{}, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"), func(c *gin.Context) { c.Next() })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/technicians/search?q=ana", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"t1"`)
}
