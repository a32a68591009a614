// pkg/registry/schema.go
package registry

// StageRegistry is the machine-readable description of the ticket pipeline:
// which stages exist, in which order they run, and which error codes each may
// raise. The orchestrator verifies its wired chain against this file at
// startup.
type StageRegistry struct {
	Version     string  `json:"version"`
	LastUpdated string  `json:"lastUpdated"`
	Stages      []Stage `json:"stages"`
}

type Stage struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	TaskType    string   `json:"taskType"`
	Position    int      `json:"position"`
	Terminal    bool     `json:"terminal"`
	ErrorCodes  []string `json:"errorCodes"`
	Timeout     string   `json:"timeout"`
}
