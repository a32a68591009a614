// internal/stages/select-assignee/handler.go
package selectassignee

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ticket-router/internal/common/errors"
	"ticket-router/internal/common/logger"
	"ticket-router/internal/common/validation"
	"ticket-router/internal/models"
	"ticket-router/internal/reasoning"

	"github.com/google/uuid"
)

const (
	TaskType = "select-assignee"

	chunkDelimiter = "\n---CHUNK---\n"
)

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

// Execute asks the decision prompt for exactly one candidate. The reply must
// be strict JSON (no fence tolerance here) and must name a member of the
// candidate set; anything else fails the stage with no fallback.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Candidates) == 0 {
		return nil, errors.NewSelectionParseFailedError("no candidates to select from")
	}

	chunks := make([]string, len(input.Candidates))
	for i, candidate := range input.Candidates {
		chunks[i] = string(candidate.Raw)
	}

	response, err := h.svc.Select(ctx, buildPrompt(input.Query, strings.Join(chunks, chunkDelimiter)))
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(response)
	if err := validation.EmployeeRecord([]byte(content)); err != nil {
		return nil, errors.NewSelectionParseFailedError(err.Error())
	}

	var record models.EmployeeRecord
	if err := json.Unmarshal([]byte(content), &record); err != nil {
		return nil, errors.NewSelectionParseFailedError(err.Error())
	}

	if !memberOf(input.Candidates, record.EmployeeID) {
		return nil, errors.NewSelectionParseFailedError(
			fmt.Sprintf("selected employee %s is not among the candidates", record.EmployeeID))
	}

	assignment := models.Assignment{
		TicketID: uuid.New().String(),
		Employee: models.Candidate{
			Raw:    json.RawMessage(content),
			Record: record,
		},
	}

	h.logger.Info("assignee selected", map[string]interface{}{
		"ticketId":   assignment.TicketID,
		"employeeId": record.EmployeeID,
		"department": record.Department,
	})

	return &Output{Assignment: assignment}, nil
}

func memberOf(candidates []models.Candidate, employeeID string) bool {
	for _, c := range candidates {
		if c.Record.EmployeeID == employeeID {
			return true
		}
	}
	return false
}
