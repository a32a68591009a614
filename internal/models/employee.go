// internal/models/employee.go
package models

import (
	"encoding/json"
	"strings"
)

// EmployeeRecord mirrors the catalog columns produced by the ingestion
// pipeline. JSON field names must match the stored metadata exactly; the
// pipeline is not allowed to rename or reshape them.
type EmployeeRecord struct {
	EmployeeID      string `json:"Employee ID"`
	Name            string `json:"Name"`
	Email           string `json:"Email"`
	Department      string `json:"Department"`
	RoleTitle       string `json:"Role/title"`
	PrimarySkills   string `json:"Primary skills"`
	SecondarySkills string `json:"Secondary skills"`
	ExperienceYears int    `json:"Experience years"`
	ProblemDomains  string `json:"Problem domains handled"`
}

// SplitSkills splits a comma-delimited skill list as stored in the catalog.
// Empty segments are dropped.
func SplitSkills(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Candidate is one reranked employee chunk. Raw holds the chunk bytes exactly
// as returned by the reasoning service so that downstream stages and
// notifications never depend on Go re-serialization.
type Candidate struct {
	Raw    json.RawMessage
	Record EmployeeRecord
}

// Vocabulary is the department-scoped term inventory collected by the
// aggregate-metadata stage. Slices are sorted and deduplicated.
type Vocabulary struct {
	PrimarySkills   []string
	SecondarySkills []string
	Roles           []string
}

// Empty reports whether the vocabulary contains no usable terms at all.
func (v Vocabulary) Empty() bool {
	return len(v.PrimarySkills) == 0 && len(v.SecondarySkills) == 0 && len(v.Roles) == 0
}
