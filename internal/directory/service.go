package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/config"
	es "teknigo_backend/internal/platform/elasticsearch"
	"teknigo_backend/internal/platform/metrics"
	"teknigo_backend/internal/sanitizer"
)

// DefaultBatchSize is the reindex page size when none is given.
const DefaultBatchSize = 100

// TechnicianSource pages through active technician profiles. Implemented by user.Service.
type TechnicianSource interface {
	TechniciansForIndex(ctx context.Context, page, pageSize int) ([]sanitizer.Record, error)
}

// SearchQuery holds directory search parameters.
type SearchQuery struct {
	Text      string `form:"q" binding:"omitempty,max=100"`
	Specialty string `form:"specialty" binding:"omitempty,max=100"`
	Area      string `form:"area" binding:"omitempty,max=100"`
	Page      int    `form:"-"`
	PageSize  int    `form:"-"`
}

// ReindexResult summarizes a reindex run.
type ReindexResult struct {
	Indexed int
	Failed  int
}

// Service keeps the technician index and searches it. With a nil client every write is a no-op
// and Enabled reports false.
type Service struct {
	client    *es.ESClientWrapper
	index     string
	sanitizer *sanitizer.Sanitizer
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates the directory service.
func NewService(client *es.ESClientWrapper, cfg *config.Config, s *sanitizer.Sanitizer, m *metrics.Metrics, logger *zap.Logger) *Service {
	index := cfg.ElasticsearchIndex
	if index == "" {
		index = es.DefaultTechniciansIndex
	}
	return &Service{client: client, index: index, sanitizer: s, metrics: m, logger: logger.Named("directory")}
}

// Enabled reports whether an Elasticsearch client is configured.
func (s *Service) Enabled() bool {
	return s.client != nil && s.client.Client != nil
}

// EnsureIndex creates the technicians index when it is missing.
func (s *Service) EnsureIndex(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	mapping, err := es.TechniciansMapping()
	if err != nil {
		return err
	}
	return es.CreateIndexIfNotExists(ctx, s.client, s.index, mapping, s.logger)
}

// IndexTechnician writes the public view of a technician profile under uid.
func (s *Service) IndexTechnician(ctx context.Context, uid string, profile sanitizer.Record) error {
	if !s.Enabled() {
		return nil
	}
	body, err := json.Marshal(Document(s.sanitizer, profile))
	if err != nil {
		return fmt.Errorf("marshal technician document: %w", err)
	}
	res, err := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: uid,
		Body:       bytes.NewReader(body),
	}.Do(ctx, s.client.Client)
	if err != nil {
		s.metrics.DirectoryError("index")
		return fmt.Errorf("index technician %s: %w", uid, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		s.metrics.DirectoryError("index")
		return fmt.Errorf("index technician %s: status %s", uid, res.Status())
	}
	return nil
}

// RemoveTechnician deletes uid from the index. A missing document is not an error.
func (s *Service) RemoveTechnician(ctx context.Context, uid string) error {
	if !s.Enabled() {
		return nil
	}
	res, err := esapi.DeleteRequest{Index: s.index, DocumentID: uid}.Do(ctx, s.client.Client)
	if err != nil {
		s.metrics.DirectoryError("delete")
		return fmt.Errorf("remove technician %s: %w", uid, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		s.metrics.DirectoryError("delete")
		return fmt.Errorf("remove technician %s: status %s", uid, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string           `json:"_id"`
			Source sanitizer.Record `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a full-text and filter query over the index, best rated first.
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]common.Resource, *common.Pagination, error) {
	if !s.Enabled() {
		return nil, nil, common.ErrServiceUnavailable.WithDetails("Technician search is not available.")
	}
	if q.Page <= 0 {
		q.Page = common.DefaultPage
	}
	if q.PageSize <= 0 {
		q.PageSize = common.DefaultPageSize
	}

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal search query: %w", err)
	}
	from := (q.Page - 1) * q.PageSize
	size := q.PageSize
	res, err := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}.Do(ctx, s.client.Client)
	if err != nil {
		s.metrics.DirectoryError("search")
		return nil, nil, fmt.Errorf("search technicians: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		s.metrics.DirectoryError("search")
		s.logger.Error("Technician search failed", zap.String("status", res.Status()))
		return nil, nil, fmt.Errorf("search technicians: status %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("decode search response: %w", err)
	}
	out := make([]common.Resource, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		// The index only holds public fields; sanitizing again also drops the slug fields.
		out = append(out, common.Resource{
			ID:         hit.ID,
			Attributes: s.sanitizer.User(hit.Source, common.RoleAnonymous, false),
		})
	}
	s.metrics.Sanitized("user", common.RoleAnonymous.String(), len(out))
	return out, common.NewPagination(parsed.Hits.Total.Value, q.Page, q.PageSize), nil
}

func buildQuery(q SearchQuery) map[string]interface{} {
	var must []interface{}
	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{"displayName^2", "specialties", "serviceAreas"},
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	var filter []interface{}
	if sl := slug.Make(q.Specialty); sl != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{specialtySlugsField: sl}})
	}
	if sl := slug.Make(q.Area); sl != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{serviceAreaSlugsField: sl}})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"rating": map[string]interface{}{"order": "desc"}},
			"_score",
		},
	}
}

// Reindex rebuilds the index from source in batches using the bulk API.
func (s *Service) Reindex(ctx context.Context, source TechnicianSource, batchSize int) (ReindexResult, error) {
	var result ReindexResult
	if !s.Enabled() {
		return result, fmt.Errorf("technician directory is disabled: ELASTICSEARCH_URL is empty")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return result, err
	}

	for page := 1; ; page++ {
		profiles, err := source.TechniciansForIndex(ctx, page, batchSize)
		if err != nil {
			return result, fmt.Errorf("fetch technicians batch %d: %w", page, err)
		}
		if len(profiles) == 0 {
			break
		}
		indexed, failed, err := s.bulkIndex(ctx, profiles)
		result.Indexed += indexed
		result.Failed += failed
		if err != nil {
			return result, fmt.Errorf("bulk index batch %d: %w", page, err)
		}
		s.logger.Info("Reindex batch processed",
			zap.Int("batchNumber", page),
			zap.Int("indexedInBatch", indexed),
			zap.Int("failedInBatch", failed),
		)
		if len(profiles) < batchSize {
			break
		}
	}

	s.logger.Info("Technician reindex finished", zap.Int("indexed", result.Indexed), zap.Int("failed", result.Failed))
	return result, nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string                 `json:"_id"`
			Status int                    `json:"status"`
			Error  map[string]interface{} `json:"error,omitempty"`
		} `json:"index"`
	} `json:"items"`
}

func (s *Service) bulkIndex(ctx context.Context, profiles []sanitizer.Record) (int, int, error) {
	var body strings.Builder
	sent := 0
	skipped := 0
	for _, p := range profiles {
		uid := p.String(string(sanitizer.UserUID))
		doc, err := json.Marshal(Document(s.sanitizer, p))
		if uid == "" || err != nil {
			s.logger.Warn("Skipping technician without uid or with unencodable profile", zap.Error(err))
			skipped++
			continue
		}
		action, _ := json.Marshal(map[string]interface{}{"index": map[string]string{"_index": s.index, "_id": uid}})
		body.Write(action)
		body.WriteByte('\n')
		body.Write(doc)
		body.WriteByte('\n')
		sent++
	}
	if sent == 0 {
		return 0, skipped, nil
	}

	res, err := esapi.BulkRequest{Body: strings.NewReader(body.String())}.Do(ctx, s.client.Client)
	if err != nil {
		s.metrics.DirectoryError("bulk")
		return 0, skipped + sent, err
	}
	defer res.Body.Close()
	if res.IsError() {
		s.metrics.DirectoryError("bulk")
		return 0, skipped + sent, fmt.Errorf("status %s", res.Status())
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, skipped + sent, fmt.Errorf("decode bulk response: %w", err)
	}
	indexed := 0
	failed := skipped
	for _, item := range parsed.Items {
		if item.Index.Error != nil {
			s.logger.Error("Failed to index technician (item-level)",
				zap.String("uid", item.Index.ID),
				zap.Any("error", item.Index.Error),
				zap.Int("status", item.Index.Status),
			)
			failed++
			continue
		}
		indexed++
	}
	return indexed, failed, nil
}
