// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-router/internal/common/config"
	"ticket-router/internal/common/logger"
	"ticket-router/internal/embedding"
	"ticket-router/internal/models"
	"ticket-router/internal/pipeline"
	"ticket-router/internal/reasoning"
	aggregatemetadata "ticket-router/internal/stages/aggregate-metadata"
	normalizequery "ticket-router/internal/stages/normalize-query"
	"ticket-router/internal/stages/notify"
	retrievererank "ticket-router/internal/stages/retrieve-rerank"
	selectassignee "ticket-router/internal/stages/select-assignee"
	"ticket-router/internal/vectorstore"
	"ticket-router/pkg/registry"
)

// The e2e suite runs the whole pipeline in-process: real embedding and
// reasoning HTTP clients against stub upstream servers, the in-memory vector
// store, and a miniredis instance backing progress tracking.

type recordingSES struct {
	mu     sync.Mutex
	inputs []*ses.SendEmailInput
}

func (s *recordingSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, params)
	return &ses.SendEmailOutput{}, nil
}

func (s *recordingSES) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, in := range s.inputs {
		out = append(out, *in.Message.Subject.Data)
	}
	return out
}

type recordingSNS struct {
	mu    sync.Mutex
	count int
}

func (s *recordingSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return &sns.PublishOutput{}, nil
}

// newEmbeddingServer answers the OpenAI-compatible embeddings endpoint with a
// fixed 3-dimensional vector keyed off the input text.
func newEmbeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		var req struct {
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		vec := []float32{0, 1, 0}
		if strings.Contains(req.Input, "Kubernetes") {
			vec = []float32{1, 0, 0}
		}
		resp := map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": vec}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

// newReasoningServer answers /api/ai/generate, picking the stage from prompt
// markers and behaving the way the real model is instructed to: a structured
// single-line normalization, chunk echo for reranking, first chunk for
// selection.
func newReasoningServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/ai/generate", r.URL.Path)
		var req struct {
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var text string
		switch {
		case strings.Contains(req.Prompt, "employee-search string"):
			// The vocabulary section always mentions Kubernetes, so key the
			// rejection off the off-topic query text instead.
			if strings.Contains(req.Prompt, "coffee") || strings.Contains(req.Prompt, "Parking") {
				text = "no data"
			} else {
				text = "Department: Engineering, Primary skills: Kubernetes, Docker, Secondary skills: Prometheus"
			}
		case strings.Contains(req.Prompt, "expert reranking engine"):
			text = chunkSection(t, req.Prompt, "### RETRIEVED EMPLOYEE CHUNKS (JSON)")
		case strings.Contains(req.Prompt, "final decision engine"):
			section := chunkSection(t, req.Prompt, "### TOP 5 CANDIDATE EMPLOYEE CHUNKS (JSON)")
			text = strings.Split(section, "\n---CHUNK---\n")[0]
		default:
			t.Errorf("unrecognized prompt: %.80s", req.Prompt)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
}

// chunkSection extracts the employee chunks embedded in a prompt.
func chunkSection(t *testing.T, prompt, header string) string {
	t.Helper()
	_, after, found := strings.Cut(prompt, header)
	require.True(t, found, "prompt missing %q", header)
	before, _, found := strings.Cut(after, "Each chunk represents")
	require.True(t, found, "prompt missing chunk section terminator")
	return strings.TrimSpace(before)
}

func employeeChunk(id, name, primary, secondary, domains string) string {
	return fmt.Sprintf(`{"Employee ID":%q,"Name":%q,"Email":"%s@example.com","Department":"Engineering","Role/title":"DevOps Engineer","Primary skills":%q,"Secondary skills":%q,"Experience years":5,"Problem domains handled":%q}`,
		id, name, strings.ToLower(id), primary, secondary, domains)
}

type env struct {
	orchestrator *pipeline.Orchestrator
	redis        *miniredis.Miniredis
	ses          *recordingSES
	sns          *recordingSNS
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.NewTestLogger(t)

	embedSrv := newEmbeddingServer(t)
	t.Cleanup(embedSrv.Close)
	reasonSrv := newReasoningServer(t)
	t.Cleanup(reasonSrv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := vectorstore.NewMemoryStore()
	for i, chunk := range []string{
		employeeChunk("EMP001", "Vivaan Sharma", "Kubernetes, Docker", "Prometheus, ELK", "Infrastructure"),
		employeeChunk("EMP002", "Aditya Joshi", "Java, Spring Boot", "SQL", "Banking Systems"),
	} {
		require.NoError(t, store.Put(context.Background(), vectorstore.Entry{
			Key:        fmt.Sprintf("emp:EMP00%d", i+1),
			Vector:     []float32{1 - float32(i), float32(i), 0},
			Department: "Engineering",
			Metadata:   json.RawMessage(chunk),
		}))
	}

	embedder, err := embedding.NewClient(config.EmbeddingAPIConfig{
		BaseURL: embedSrv.URL,
		Model:   "all-minilm",
		Timeout: 5000,
	}, 3, log)
	require.NoError(t, err)

	reasoner, err := reasoning.NewGenAIClient(config.ReasoningAPIConfig{
		BaseURL:    reasonSrv.URL,
		Model:      "test-model",
		MaxTokens:  2048,
		Timeout:    5000,
		MaxRetries: 1,
	}, log)
	require.NoError(t, err)

	sesClient := &recordingSES{}
	snsClient := &recordingSNS{}
	notifyHandler := notify.NewHandler(&notify.Config{
		EmailEnabled:   true,
		FromEmail:      "noreply@example.com",
		SMSEnabled:     true,
		OpsPhoneNumber: "+15550100",
	}, sesClient, snsClient, log)

	reg, err := registry.LoadRegistry("../../configs/stage-registry.json")
	require.NoError(t, err)

	stages := pipeline.Stages{
		Aggregate: aggregatemetadata.NewHandler(store, log),
		Normalize: normalizequery.NewHandler(reasoner, log),
		Retrieve:  retrievererank.NewHandler(&retrievererank.Config{KNNLimit: 10, Dimension: 3}, store, embedder, reasoner, log),
		Select:    selectassignee.NewHandler(reasoner, log),
		Notify:    notifyHandler,
	}

	progress := pipeline.NewRedisProgress(rdb, time.Hour, log)
	orchestrator, err := pipeline.New(config.PipelineConfig{
		Workers:            2,
		QueueSize:          8,
		StageTimeout:       10000,
		DefaultNotifyEmail: "ops@example.com",
	}, stages, progress, nil, reg, log)
	require.NoError(t, err)
	t.Cleanup(orchestrator.Shutdown)

	return &env{orchestrator: orchestrator, redis: mr, ses: sesClient, sns: snsClient}
}

func waitOutcome(t *testing.T, h *pipeline.Handle) models.Outcome {
	t.Helper()
	select {
	case <-h.Done():
		return h.Outcome()
	case <-time.After(10 * time.Second):
		t.Fatal("ticket did not finish")
		return models.Outcome{}
	}
}

func TestE2E_TicketAssigned(t *testing.T) {
	e := newEnv(t)

	handle, err := e.orchestrator.Submit(models.Ticket{
		Query:       "Kubernetes pods keep crash-looping after the last deploy",
		Department:  "Engineering",
		NotifyEmail: "reporter@example.com",
	})
	require.NoError(t, err)

	outcome := waitOutcome(t, handle)
	require.Equal(t, models.OutcomeAssigned, outcome.Kind)
	require.NotNil(t, outcome.Assignment)
	assert.Equal(t, "EMP001", outcome.Assignment.Employee.Record.EmployeeID)

	subjects := e.ses.subjects()
	require.Len(t, subjects, 1)
	assert.Contains(t, subjects[0], "Ticket Assigned")
	assert.Zero(t, e.sns.count)

	// Progress hash survives the run with the terminal outcome recorded.
	progress, err := e.redis.HKeys(fmt.Sprintf("ticket:progress:%s", handle.TicketID))
	require.NoError(t, err)
	assert.Contains(t, progress, "outcome")
}

func TestE2E_TicketRejected(t *testing.T) {
	e := newEnv(t)

	handle, err := e.orchestrator.Submit(models.Ticket{
		Query:      "The cafeteria coffee machine is out of beans",
		Department: "Engineering",
	})
	require.NoError(t, err)

	outcome := waitOutcome(t, handle)
	require.Equal(t, models.OutcomeRejected, outcome.Kind)
	assert.NotEmpty(t, outcome.Reason)

	subjects := e.ses.subjects()
	require.Len(t, subjects, 1)
	assert.Contains(t, subjects[0], "Not Assigned")
	assert.Zero(t, e.sns.count)
}

func TestE2E_ConcurrentTickets(t *testing.T) {
	e := newEnv(t)

	match, err := e.orchestrator.Submit(models.Ticket{
		Query:      "Kubernetes cluster autoscaler misbehaving",
		Department: "Engineering",
	})
	require.NoError(t, err)
	offTopic, err := e.orchestrator.Submit(models.Ticket{
		Query:      "Parking garage gate will not open",
		Department: "Engineering",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeAssigned, waitOutcome(t, match).Kind)
	assert.Equal(t, models.OutcomeRejected, waitOutcome(t, offTopic).Kind)
}
