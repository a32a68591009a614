// internal/vectorstore/redis_test.go
package vectorstore

import (
	"context"
	"encoding/json"
	"testing"

	"ticket-router/internal/common/config"
	"ticket-router/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVectorStoreConfig() config.VectorStoreConfig {
	return config.VectorStoreConfig{
		IndexName:   "employee_embeddings",
		KeyPrefix:   "emp:",
		Dimension:   3,
		KNNLimit:    10,
		FilterLimit: 1000,
	}
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{0, 0, 0},
		{1, -1, 0.5},
		{0.123456, 384.0, -0.000001},
	}
	for _, v := range vectors {
		encoded := encodeVector(v)
		assert.Len(t, encoded, 4*len(v))
		assert.Equal(t, v, decodeVector(encoded))
	}
}

func TestDocsToEntries(t *testing.T) {
	docs := []redis.Document{
		{
			ID: "emp:EMP001",
			Fields: map[string]string{
				"text":       "devops profile",
				"department": "Engineering",
				"metadata":   `{"Employee ID":"EMP001"}`,
			},
		},
		{
			ID:     "emp:EMP002",
			Fields: map[string]string{"department": "Finance"},
		},
	}

	entries := docsToEntries(docs)
	require.Len(t, entries, 2)
	assert.Equal(t, "emp:EMP001", entries[0].Key)
	assert.Equal(t, "devops profile", entries[0].Text)
	assert.JSONEq(t, `{"Employee ID":"EMP001"}`, string(entries[0].Metadata))
	assert.Equal(t, "Finance", entries[1].Department)
}

// miniredis does not implement the RediSearch module, so index creation and
// search queries run only against a real Redis Stack. The hash write path is
// still coverable: Put must land the entry under the configured prefix with
// the encoded vector.
func TestRedisStore_PutWritesHash(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, testVectorStoreConfig(), logger.NewTestLogger(t))
	store.ensured = true // skip FT.CREATE, unsupported by miniredis

	metadata := `{"Employee ID":"EMP001","Department":"Engineering"}`
	require.NoError(t, store.Put(context.Background(), Entry{
		Key:        "EMP001",
		Vector:     []float32{1, 0, 0.5},
		Text:       "profile text",
		Department: "Engineering",
		Metadata:   json.RawMessage(metadata),
	}))

	fields, err := client.HGetAll(context.Background(), "emp:EMP001").Result()
	require.NoError(t, err)
	assert.Equal(t, "profile text", fields["text"])
	assert.Equal(t, "Engineering", fields["department"])
	assert.JSONEq(t, metadata, fields["metadata"])
	assert.Equal(t, []float32{1, 0, 0.5}, decodeVector([]byte(fields["embedding"])))
}

func TestRedisStore_PutRejectsBadEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, testVectorStoreConfig(), logger.NewTestLogger(t))
	store.ensured = true

	err := store.Put(context.Background(), Entry{Key: "EMP001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vector")

	err = store.Put(context.Background(), Entry{Vector: []float32{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key is required")
}
