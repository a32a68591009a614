// internal/stages/retrieve-rerank/handler_test.go
package retrievererank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"ticket-router/internal/common/errors"
	"ticket-router/internal/common/logger"
	"ticket-router/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

func (s *stubEmbedder) Dimension() int { return len(s.vector) }

type stubReasoning struct {
	reply  string
	err    error
	prompt string
}

func (s *stubReasoning) Normalize(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func (s *stubReasoning) Rerank(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func (s *stubReasoning) Select(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func employeeChunk(id, name string) string {
	return fmt.Sprintf(`{"Employee ID":%q,"Name":%q,"Email":"%s@example.com","Department":"Engineering","Role/title":"DevOps Engineer","Primary skills":"Kubernetes, Docker","Secondary skills":"Prometheus","Experience years":4,"Problem domains handled":"Infrastructure"}`,
		id, name, strings.ToLower(name))
}

func seededStore(t *testing.T, ids ...string) vectorstore.Store {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	for i, id := range ids {
		require.NoError(t, store.Put(context.Background(), vectorstore.Entry{
			Key:        "emp:" + id,
			Vector:     []float32{1, float32(i) * 0.1, 0},
			Department: "Engineering",
			Metadata:   json.RawMessage(employeeChunk(id, "emp"+id)),
		}))
	}
	return store
}

func testInput() *Input {
	return &Input{
		Query:           "Kubernetes pods restarting after CI/CD runs",
		Department:      "Engineering",
		NormalizedQuery: "Department: Engineering, Primary skills: Kubernetes, Docker",
	}
}

func newTestHandler(t *testing.T, store vectorstore.Store, svc *stubReasoning) *Handler {
	t.Helper()
	cfg := &Config{KNNLimit: 10, Dimension: 3}
	return NewHandler(cfg, store, &stubEmbedder{vector: []float32{1, 0, 0}}, svc, logger.NewTestLogger(t))
}

func TestExecute_ReturnsRerankedCandidates(t *testing.T) {
	store := seededStore(t, "EMP001", "EMP002", "EMP003")
	svc := &stubReasoning{reply: employeeChunk("EMP002", "empEMP002") + chunkDelimiter + employeeChunk("EMP001", "empEMP001")}
	handler := newTestHandler(t, store, svc)

	output, err := handler.Execute(context.Background(), testInput())
	require.NoError(t, err)
	require.Len(t, output.Candidates, 2)
	assert.Equal(t, "EMP002", output.Candidates[0].Record.EmployeeID)
	assert.Equal(t, "EMP001", output.Candidates[1].Record.EmployeeID)

	// Raw bytes are the reranker's chunk verbatim.
	assert.JSONEq(t, employeeChunk("EMP002", "empEMP002"), string(output.Candidates[0].Raw))

	// Retrieved chunks travel to the reranker joined by the delimiter.
	assert.Contains(t, svc.prompt, "---CHUNK---")
	assert.Contains(t, svc.prompt, `"EMP003"`)
}

func TestExecute_StripsCodeFence(t *testing.T) {
	store := seededStore(t, "EMP001")
	svc := &stubReasoning{reply: "```json\n" + employeeChunk("EMP001", "empEMP001") + "\n```"}
	handler := newTestHandler(t, store, svc)

	output, err := handler.Execute(context.Background(), testInput())
	require.NoError(t, err)
	require.Len(t, output.Candidates, 1)
	assert.Equal(t, "EMP001", output.Candidates[0].Record.EmployeeID)
}

func TestExecute_InventedCandidateFailsStage(t *testing.T) {
	store := seededStore(t, "EMP001", "EMP002")
	svc := &stubReasoning{reply: employeeChunk("EMP099", "ghost")}
	handler := newTestHandler(t, store, svc)

	_, err := handler.Execute(context.Background(), testInput())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCandidateParseFailed, errors.CodeOf(err))
	assert.Contains(t, err.(*errors.StandardError).Details, "EMP099")
}

func TestExecute_MalformedChunkFailsStage(t *testing.T) {
	store := seededStore(t, "EMP001", "EMP002")
	svc := &stubReasoning{reply: employeeChunk("EMP001", "empEMP001") + chunkDelimiter + `{"Name":"broken`}
	handler := newTestHandler(t, store, svc)

	_, err := handler.Execute(context.Background(), testInput())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCandidateParseFailed, errors.CodeOf(err))
}

func TestExecute_TooManyCandidatesFailsStage(t *testing.T) {
	ids := []string{"EMP001", "EMP002", "EMP003", "EMP004", "EMP005", "EMP006"}
	store := seededStore(t, ids...)

	chunks := make([]string, len(ids))
	for i, id := range ids {
		chunks[i] = employeeChunk(id, "emp"+id)
	}
	svc := &stubReasoning{reply: strings.Join(chunks, chunkDelimiter)}
	handler := newTestHandler(t, store, svc)

	_, err := handler.Execute(context.Background(), testInput())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCandidateParseFailed, errors.CodeOf(err))
}

func TestExecute_IdempotentOverUnchangedStore(t *testing.T) {
	store := seededStore(t, "EMP001", "EMP002", "EMP003")
	reply := employeeChunk("EMP003", "empEMP003") + chunkDelimiter + employeeChunk("EMP001", "empEMP001")
	handler := newTestHandler(t, store, &stubReasoning{reply: reply})

	identities := func(output *Output) []string {
		ids := make([]string, len(output.Candidates))
		for i, c := range output.Candidates {
			ids[i] = c.Record.EmployeeID
		}
		return ids
	}

	first, err := handler.Execute(context.Background(), testInput())
	require.NoError(t, err)
	second, err := handler.Execute(context.Background(), testInput())
	require.NoError(t, err)

	// Same store, same query, deterministic reranker: identical identity set.
	assert.Equal(t, identities(first), identities(second))
}

func TestExecute_MoreCandidatesThanHitsFailsStage(t *testing.T) {
	store := seededStore(t, "EMP001", "EMP002")

	// Three chunks against two retrieved employees: all ids are known, the
	// count alone breaks the bound.
	dup := employeeChunk("EMP001", "empEMP001")
	reply := strings.Join([]string{dup, employeeChunk("EMP002", "empEMP002"), dup}, chunkDelimiter)
	handler := newTestHandler(t, store, &stubReasoning{reply: reply})

	_, err := handler.Execute(context.Background(), testInput())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCandidateParseFailed, errors.CodeOf(err))
	assert.Contains(t, err.(*errors.StandardError).Details, "2 retrieved employees")
}

func TestExecute_EmptyDepartmentRejects(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	svc := &stubReasoning{}
	handler := newTestHandler(t, store, svc)

	_, err := handler.Execute(context.Background(), testInput())
	require.Error(t, err)
	rejection, ok := errors.AsRejection(err)
	require.True(t, ok)
	assert.Contains(t, rejection.Reason, "Engineering")
}

func TestExecute_SentinelReachingRetrievalIsAWiringBug(t *testing.T) {
	store := seededStore(t, "EMP001")
	handler := newTestHandler(t, store, &stubReasoning{})

	input := testInput()
	input.NormalizedQuery = "no data"
	_, err := handler.Execute(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))
}

func TestExecute_DimensionMismatchFailsStage(t *testing.T) {
	store := seededStore(t, "EMP001")
	cfg := &Config{KNNLimit: 10, Dimension: 384}
	handler := NewHandler(cfg, store, &stubEmbedder{vector: []float32{1, 0, 0}}, &stubReasoning{}, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), testInput())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEmbeddingServiceFailed, errors.CodeOf(err))
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without close", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}
