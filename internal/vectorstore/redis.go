// internal/vectorstore/redis.go
package vectorstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"ticket-router/internal/common/config"
	"ticket-router/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a RediSearch vector index. Entries are
// hashes under a common key prefix; the index declares a filterable department
// text field and an HNSW FLOAT32 cosine vector field.
type RedisStore struct {
	client *redis.Client
	cfg    config.VectorStoreConfig
	logger logger.Logger

	mu      sync.Mutex
	ensured bool
}

func NewRedisStore(client *redis.Client, cfg config.VectorStoreConfig, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "vectorstore.redis"}),
	}
}

// EnsureIndex creates the index if FT.INFO reports it missing. Concurrent
// callers are serialized; the flag keeps the happy path to one round trip.
func (s *RedisStore) EnsureIndex(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	if _, err := s.client.FTInfo(ctx, s.cfg.IndexName).Result(); err == nil {
		s.ensured = true
		return nil
	}

	_, err := s.client.FTCreate(ctx, s.cfg.IndexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{s.cfg.KeyPrefix},
		},
		&redis.FieldSchema{FieldName: "text", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "department", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "metadata", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				HNSWOptions: &redis.FTHNSWOptions{
					Type:           "FLOAT32",
					Dim:            dimension,
					DistanceMetric: "COSINE",
				},
			},
		},
	).Result()
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.cfg.IndexName, err)
	}

	s.logger.Info("vector index created", map[string]interface{}{
		"index":     s.cfg.IndexName,
		"dimension": dimension,
	})
	s.ensured = true
	return nil
}

func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	if len(entry.Vector) == 0 {
		return fmt.Errorf("entry %s has no vector", entry.Key)
	}
	if err := s.EnsureIndex(ctx, len(entry.Vector)); err != nil {
		return err
	}

	key := entry.Key
	if key == "" {
		return fmt.Errorf("entry key is required")
	}

	err := s.client.HSet(ctx, s.cfg.KeyPrefix+key, map[string]interface{}{
		"embedding":  encodeVector(entry.Vector),
		"text":       entry.Text,
		"department": entry.Department,
		"metadata":   string(entry.Metadata),
	}).Err()
	if err != nil {
		return fmt.Errorf("store entry %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) QueryByFilter(ctx context.Context, department string) ([]Entry, error) {
	query := fmt.Sprintf("@department:%q", department)

	res, err := s.client.FTSearchWithArgs(ctx, s.cfg.IndexName, query, &redis.FTSearchOptions{
		Return: []redis.FTSearchReturn{
			{FieldName: "department"},
			{FieldName: "text"},
			{FieldName: "metadata"},
		},
		LimitOffset:    0,
		Limit:          s.cfg.FilterLimit,
		DialectVersion: 2,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("filter query for %q: %w", department, err)
	}

	return docsToEntries(res.Docs), nil
}

func (s *RedisStore) KNN(ctx context.Context, department string, vector []float32, k int) ([]Entry, error) {
	query := fmt.Sprintf("(@department:%q)=>[KNN %d @embedding $vec AS score]", department, k)

	res, err := s.client.FTSearchWithArgs(ctx, s.cfg.IndexName, query, &redis.FTSearchOptions{
		Return: []redis.FTSearchReturn{
			{FieldName: "department"},
			{FieldName: "text"},
			{FieldName: "metadata"},
			{FieldName: "score"},
		},
		SortBy: []redis.FTSearchSortBy{
			{FieldName: "score", Asc: true}, // cosine distance: smaller is closer
		},
		LimitOffset:    0,
		Limit:          k,
		Params:         map[string]interface{}{"vec": encodeVector(vector)},
		DialectVersion: 2,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("knn query for %q: %w", department, err)
	}

	return docsToEntries(res.Docs), nil
}

func docsToEntries(docs []redis.Document) []Entry {
	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, Entry{
			Key:        doc.ID,
			Text:       doc.Fields["text"],
			Department: doc.Fields["department"],
			Metadata:   json.RawMessage(doc.Fields["metadata"]),
		})
	}
	return entries
}

// encodeVector serializes a vector as little-endian FLOAT32 bytes, the layout
// the RediSearch vector field expects.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
