// internal/stages/select-assignee/models.go
package selectassignee

import "ticket-router/internal/models"

type Input struct {
	Query      string             `json:"query"`
	Candidates []models.Candidate `json:"-"`
}

type Output struct {
	Assignment models.Assignment `json:"assignment"`
}
