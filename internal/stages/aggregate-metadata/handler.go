// internal/stages/aggregate-metadata/handler.go
package aggregatemetadata

import (
	"context"
	"encoding/json"
	"sort"

	"ticket-router/internal/common/errors"
	"ticket-router/internal/common/logger"
	"ticket-router/internal/models"
	"ticket-router/internal/vectorstore"
)

const (
	TaskType = "aggregate-metadata"
)

type Handler struct {
	store  vectorstore.Store
	logger logger.Logger
}

func NewHandler(store vectorstore.Store, log logger.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute collects the skill and role vocabulary of one department from the
// stored employee metadata. An unknown department yields empty sets, not an
// error; individual entries with unreadable metadata are skipped.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	entries, err := h.store.QueryByFilter(ctx, input.Department)
	if err != nil {
		return nil, errors.NewVectorStoreError("filter", err)
	}

	primary := make(map[string]struct{})
	secondary := make(map[string]struct{})
	roles := make(map[string]struct{})

	for _, entry := range entries {
		var record models.EmployeeRecord
		if err := json.Unmarshal(entry.Metadata, &record); err != nil {
			h.logger.Warn("skipping entry with malformed metadata", map[string]interface{}{
				"key":   entry.Key,
				"error": err.Error(),
			})
			continue
		}
		for _, skill := range models.SplitSkills(record.PrimarySkills) {
			primary[skill] = struct{}{}
		}
		for _, skill := range models.SplitSkills(record.SecondarySkills) {
			secondary[skill] = struct{}{}
		}
		if record.RoleTitle != "" {
			roles[record.RoleTitle] = struct{}{}
		}
	}

	vocabulary := models.Vocabulary{
		PrimarySkills:   sortedKeys(primary),
		SecondarySkills: sortedKeys(secondary),
		Roles:           sortedKeys(roles),
	}

	h.logger.Info("vocabulary aggregated", map[string]interface{}{
		"department":      input.Department,
		"entries":         len(entries),
		"primarySkills":   len(vocabulary.PrimarySkills),
		"secondarySkills": len(vocabulary.SecondarySkills),
		"roles":           len(vocabulary.Roles),
	})

	return &Output{
		Query:      input.Query,
		Department: input.Department,
		Vocabulary: vocabulary,
	}, nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
