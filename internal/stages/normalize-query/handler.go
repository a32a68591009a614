// internal/stages/normalize-query/handler.go
package normalizequery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ticket-router/internal/common/errors"
	"ticket-router/internal/common/logger"
	"ticket-router/internal/reasoning"
)

const (
	TaskType = "normalize-query"

	// RejectionSentinel is the exact reply the normalizer emits when the query
	// maps to none of the department's skills.
	RejectionSentinel = "no data"
)

var (
	emailTokenRe      = regexp.MustCompile(`\S+@\S+`)
	employeeIDRe      = regexp.MustCompile(`\bEMP\d+\b`)
	experienceTokenRe = regexp.MustCompile(`\b\d+\s+years?\b`)
)

// allowedFields are the only labels a normalized query may carry. Identity
// fields (Name, Email, Employee ID, Experience years) are structurally
// excluded.
var allowedFields = map[string]struct{}{
	"Department":       {},
	"Role/title":       {},
	"Primary skills":   {},
	"Secondary skills": {},
}

type Handler struct {
	svc    reasoning.Service
	logger logger.Logger
}

func NewHandler(svc reasoning.Service, log logger.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute rewrites the free-text query into a single retrieval line bounded by
// the department vocabulary. The sentinel reply short-circuits the chain as a
// rejection; any identity token in the output is a hard validation failure.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	prompt := buildPrompt(input.Query, input.Department, input.Vocabulary)

	response, err := h.svc.Normalize(ctx, prompt)
	if err != nil {
		return nil, err
	}

	normalized := strings.TrimSpace(response)
	if normalized == RejectionSentinel {
		h.logger.Info("query rejected by normalizer", map[string]interface{}{
			"department": input.Department,
		})
		return nil, &errors.RejectionSignal{
			Reason: "no relevant skills identified; choose the correct department or reframe the query",
		}
	}

	if err := validateNormalized(normalized); err != nil {
		return nil, err
	}

	h.logger.Info("query normalized", map[string]interface{}{
		"department": input.Department,
		"length":     len(normalized),
	})

	return &Output{
		Query:           input.Query,
		Department:      input.Department,
		NormalizedQuery: normalized,
	}, nil
}

// validateNormalized enforces the output contract: one line of Field: value
// pairs drawn from the allowed labels, free of employee identity tokens.
func validateNormalized(line string) error {
	if line == "" {
		return errors.NewValidationFailedError("normalizer returned an empty line")
	}
	if strings.ContainsAny(line, "\n\r") {
		return errors.NewValidationFailedError("normalizer output spans multiple lines")
	}

	current := ""
	for _, segment := range strings.Split(line, ", ") {
		if idx := strings.Index(segment, ": "); idx >= 0 {
			label := segment[:idx]
			if _, ok := allowedFields[label]; !ok {
				return errors.NewValidationFailedError(fmt.Sprintf("forbidden field label %q", label))
			}
			current = label
			continue
		}
		// Segments without a label extend the current field's value list.
		if current == "" {
			return errors.NewValidationFailedError(fmt.Sprintf("segment %q precedes any field label", segment))
		}
	}

	if tok := emailTokenRe.FindString(line); tok != "" {
		return errors.NewValidationFailedError("email address token in normalized query")
	}
	if tok := employeeIDRe.FindString(line); tok != "" {
		return errors.NewValidationFailedError(fmt.Sprintf("employee id token %q in normalized query", tok))
	}
	if tok := experienceTokenRe.FindString(line); tok != "" {
		return errors.NewValidationFailedError(fmt.Sprintf("experience token %q in normalized query", tok))
	}
	return nil
}
