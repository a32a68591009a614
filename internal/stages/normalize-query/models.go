// internal/stages/normalize-query/models.go
package normalizequery

import "ticket-router/internal/models"

type Input struct {
	Query      string            `json:"query"`
	Department string            `json:"department"`
	Vocabulary models.Vocabulary `json:"vocabulary"`
}

type Output struct {
	Query           string `json:"query"`
	Department      string `json:"department"`
	NormalizedQuery string `json:"normalizedQuery"`
}
