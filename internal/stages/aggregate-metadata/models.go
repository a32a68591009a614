// internal/stages/aggregate-metadata/models.go
package aggregatemetadata

import "ticket-router/internal/models"

type Input struct {
	Query      string `json:"query"`
	Department string `json:"department"`
}

type Output struct {
	Query      string            `json:"query"`
	Department string            `json:"department"`
	Vocabulary models.Vocabulary `json:"vocabulary"`
}
