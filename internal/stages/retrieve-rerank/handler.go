// internal/stages/retrieve-rerank/handler.go
package retrievererank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ticket-router/internal/common/errors"
	"ticket-router/internal/common/logger"
	"ticket-router/internal/common/validation"
	"ticket-router/internal/embedding"
	"ticket-router/internal/models"
	"ticket-router/internal/reasoning"
	"ticket-router/internal/vectorstore"
)

const (
	TaskType = "retrieve-rerank"

	// chunkDelimiter separates employee chunks in both directions of the
	// rerank exchange.
	chunkDelimiter = "\n---CHUNK---\n"

	maxCandidates = 5
)

type Handler struct {
	config   *Config
	store    vectorstore.Store
	embedder embedding.Embedder
	svc      reasoning.Service
	logger   logger.Logger
}

func NewHandler(config *Config, store vectorstore.Store, embedder embedding.Embedder, svc reasoning.Service, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		store:    store,
		embedder: embedder,
		svc:      svc,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute embeds the normalized query, pulls the department's nearest
// neighbours and asks the reranker for the top chunks verbatim. The reranker
// selects and orders; it never invents, so every candidate must map back to a
// retrieved employee.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	normalized := strings.TrimSpace(input.NormalizedQuery)
	if normalized == "" || normalized == "no data" {
		// The normalizer converts the sentinel upstream; reaching retrieval
		// with it means the chain is wired wrong.
		return nil, errors.NewValidationFailedError("rejection sentinel reached retrieval")
	}

	vector, err := h.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if h.config.Dimension > 0 && len(vector) != h.config.Dimension {
		return nil, errors.NewEmbeddingServiceError(
			fmt.Errorf("embedding dimension %d does not match index dimension %d", len(vector), h.config.Dimension))
	}

	hits, err := h.store.KNN(ctx, input.Department, vector, h.config.KNNLimit)
	if err != nil {
		return nil, errors.NewVectorStoreError("knn", err)
	}
	if len(hits) == 0 {
		return nil, &errors.RejectionSignal{
			Reason: fmt.Sprintf("no employees indexed for department %q", input.Department),
		}
	}

	chunks, knownIDs, err := chunksFromHits(hits)
	if err != nil {
		return nil, err
	}

	response, err := h.svc.Rerank(ctx, buildPrompt(input.Query, strings.Join(chunks, chunkDelimiter)))
	if err != nil {
		return nil, err
	}

	candidates, err := parseCandidates(response, knownIDs, len(hits))
	if err != nil {
		return nil, err
	}

	h.logger.Info("candidates reranked", map[string]interface{}{
		"department": input.Department,
		"hits":       len(hits),
		"candidates": len(candidates),
	})

	return &Output{
		Query:      input.Query,
		Department: input.Department,
		Candidates: candidates,
	}, nil
}

// chunksFromHits serializes each hit's metadata as an indented JSON block and
// collects the retrieved employee ids for the membership check.
func chunksFromHits(hits []vectorstore.Entry) ([]string, map[string]struct{}, error) {
	chunks := make([]string, 0, len(hits))
	knownIDs := make(map[string]struct{}, len(hits))

	for _, hit := range hits {
		var buf bytes.Buffer
		if err := json.Indent(&buf, hit.Metadata, "", "  "); err != nil {
			return nil, nil, errors.NewCandidateParseFailedError(
				fmt.Sprintf("stored metadata for %s is not valid JSON: %v", hit.Key, err))
		}
		chunks = append(chunks, buf.String())

		var record models.EmployeeRecord
		if err := json.Unmarshal(hit.Metadata, &record); err == nil && record.EmployeeID != "" {
			knownIDs[record.EmployeeID] = struct{}{}
		}
	}
	return chunks, knownIDs, nil
}

// parseCandidates decodes the reranker reply. A wrapping code fence is
// tolerated; anything else malformed fails the stage.
func parseCandidates(response string, knownIDs map[string]struct{}, hitCount int) ([]models.Candidate, error) {
	content := stripCodeFence(strings.TrimSpace(response))

	var candidates []models.Candidate
	for _, chunk := range strings.Split(content, chunkDelimiter) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if err := validation.EmployeeRecord([]byte(chunk)); err != nil {
			return nil, errors.NewCandidateParseFailedError(err.Error())
		}
		var record models.EmployeeRecord
		if err := json.Unmarshal([]byte(chunk), &record); err != nil {
			return nil, errors.NewCandidateParseFailedError(err.Error())
		}
		if _, ok := knownIDs[record.EmployeeID]; !ok {
			return nil, errors.NewCandidateParseFailedError(
				fmt.Sprintf("candidate %s was not among the retrieved employees", record.EmployeeID))
		}
		candidates = append(candidates, models.Candidate{
			Raw:    json.RawMessage(chunk),
			Record: record,
		})
	}

	if len(candidates) == 0 {
		return nil, errors.NewCandidateParseFailedError("reranker returned no chunks")
	}
	if len(candidates) > maxCandidates {
		return nil, errors.NewCandidateParseFailedError(
			fmt.Sprintf("reranker returned %d chunks, limit is %d", len(candidates), maxCandidates))
	}
	if len(candidates) > hitCount {
		return nil, errors.NewCandidateParseFailedError(
			fmt.Sprintf("reranker returned %d chunks for %d retrieved employees", len(candidates), hitCount))
	}
	return candidates, nil
}

// stripCodeFence removes one wrapping markdown fence if present. Only the
// rerank reply gets this tolerance.
func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if idx := strings.Index(content, "\n"); idx >= 0 {
		content = content[idx+1:]
	} else {
		content = content[3:]
	}
	if strings.HasSuffix(strings.TrimSpace(content), "```") {
		trimmed := strings.TrimSpace(content)
		content = trimmed[:len(trimmed)-3]
	}
	return strings.TrimSpace(content)
}
