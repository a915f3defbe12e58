package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// DefaultTechniciansIndex is used when no index name is configured.
const DefaultTechniciansIndex = "technicians"

// TechniciansMapping returns the JSON mapping of the technician directory index. Only public
// profile fields are mapped; the slug fields back exact-match filters.
func TechniciansMapping() (string, error) {
	keywordSub := map[string]interface{}{
		"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
	}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"displayName":      map[string]interface{}{"type": "text", "fields": keywordSub},
				"photoURL":         map[string]interface{}{"type": "keyword", "index": false},
				"userType":         map[string]interface{}{"type": "keyword"},
				"rating":           map[string]interface{}{"type": "double"},
				"reviewCount":      map[string]interface{}{"type": "integer"},
				"specialties":      map[string]interface{}{"type": "text", "fields": keywordSub},
				"serviceAreas":     map[string]interface{}{"type": "text", "fields": keywordSub},
				"specialtySlugs":   map[string]interface{}{"type": "keyword"},
				"serviceAreaSlugs": map[string]interface{}{"type": "keyword"},
			},
		},
	}
	b, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling technicians mapping to JSON: %w", err)
	}
	return string(b), nil
}

// CreateIndexIfNotExists creates index with mapping unless it already exists.
func CreateIndexIfNotExists(ctx context.Context, client *ESClientWrapper, index, mapping string, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup").With(zap.String("index_name", index))

	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if index exists", zap.Error(err))
		return fmt.Errorf("error checking if index %s exists: %w", index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Debug("Index already exists")
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Error("Unexpected status checking index", zap.String("status", res.Status()))
		return fmt.Errorf("error checking if index %s exists: status %s", index, res.Status())
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: index,
		Body:  strings.NewReader(mapping),
	}.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating index", zap.Error(err))
		return fmt.Errorf("error creating index %s: %w", index, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		log.Error("Failed to create index",
			zap.String("status", createRes.Status()),
			zap.Any("error_details", decodeErrorBody(createRes.Body)),
		)
		return fmt.Errorf("failed to create index %s: status %s", index, createRes.Status())
	}

	log.Info("Index created successfully")
	return nil
}
