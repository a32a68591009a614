// internal/vectorstore/elastic.go
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"ticket-router/internal/common/config"
	"ticket-router/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticStore implements Store on an Elasticsearch dense_vector index. It is
// the alternate deployment backend; semantics match RedisStore: exact keyword
// filter on department, cosine KNN over the embedding field.
type ElasticStore struct {
	client *elasticsearch.Client
	cfg    config.VectorStoreConfig
	logger logger.Logger

	mu      sync.Mutex
	ensured bool
}

func NewElasticStore(client *elasticsearch.Client, cfg config.VectorStoreConfig, log logger.Logger) *ElasticStore {
	return &ElasticStore{
		client: client,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "vectorstore.elasticsearch"}),
	}
}

func (s *ElasticStore) EnsureIndex(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	res, err := s.client.Indices.Exists(
		[]string{s.cfg.IndexName},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.cfg.IndexName, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		s.ensured = true
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"text":       map[string]interface{}{"type": "text"},
				"department": map[string]interface{}{"type": "keyword"},
				"metadata":   map[string]interface{}{"type": "text", "index": false},
				"embedding": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       dimension,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
	body, _ := json.Marshal(mapping)

	createRes, err := s.client.Indices.Create(
		s.cfg.IndexName,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.cfg.IndexName, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("create index %s: %s", s.cfg.IndexName, createRes.Status())
	}

	s.logger.Info("vector index created", map[string]interface{}{
		"index":     s.cfg.IndexName,
		"dimension": dimension,
	})
	s.ensured = true
	return nil
}

func (s *ElasticStore) Put(ctx context.Context, entry Entry) error {
	if len(entry.Vector) == 0 {
		return fmt.Errorf("entry %s has no vector", entry.Key)
	}
	if err := s.EnsureIndex(ctx, len(entry.Vector)); err != nil {
		return err
	}

	doc := map[string]interface{}{
		"text":       entry.Text,
		"department": entry.Department,
		"metadata":   string(entry.Metadata),
		"embedding":  entry.Vector,
	}
	body, _ := json.Marshal(doc)

	res, err := s.client.Index(
		s.cfg.IndexName,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(entry.Key),
	)
	if err != nil {
		return fmt.Errorf("store entry %s: %w", entry.Key, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("store entry %s: %s", entry.Key, res.Status())
	}
	return nil
}

func (s *ElasticStore) QueryByFilter(ctx context.Context, department string) ([]Entry, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"department": department},
		},
		"size":    s.cfg.FilterLimit,
		"_source": []string{"text", "department", "metadata"},
	}
	return s.search(ctx, query, fmt.Sprintf("filter %q", department))
}

func (s *ElasticStore) KNN(ctx context.Context, department string, vector []float32, k int) ([]Entry, error) {
	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"department": department},
			},
		},
		"size":    k,
		"_source": []string{"text", "department", "metadata"},
	}
	return s.search(ctx, query, fmt.Sprintf("knn %q", department))
}

func (s *ElasticStore) search(ctx context.Context, query map[string]interface{}, op string) ([]Entry, error) {
	body, _ := json.Marshal(query)

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.cfg.IndexName),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%s: %s", op, res.Status())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	var envelope struct {
		Hits struct {
			Hits []struct {
				ID     string `json:"_id"`
				Source struct {
					Text       string `json:"text"`
					Department string `json:"department"`
					Metadata   string `json:"metadata"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	entries := make([]Entry, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		entries = append(entries, Entry{
			Key:        hit.ID,
			Text:       hit.Source.Text,
			Department: hit.Source.Department,
			Metadata:   json.RawMessage(hit.Source.Metadata),
		})
	}
	return entries, nil
}
