// internal/stages/retrieve-rerank/models.go
package retrievererank

import "ticket-router/internal/models"

type Input struct {
	Query           string `json:"query"`
	Department      string `json:"department"`
	NormalizedQuery string `json:"normalizedQuery"`
}

type Output struct {
	Query      string             `json:"query"`
	Department string             `json:"department"`
	Candidates []models.Candidate `json:"-"`
}
