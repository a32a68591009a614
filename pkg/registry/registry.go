// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

func LoadRegistry(path string) (*StageRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg StageRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// ChainOrder returns the non-terminal task types sorted by position.
func (r *StageRegistry) ChainOrder() []string {
	stages := make([]Stage, 0, len(r.Stages))
	for _, s := range r.Stages {
		if !s.Terminal {
			stages = append(stages, s)
		}
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })

	order := make([]string, len(stages))
	for i, s := range stages {
		order[i] = s.TaskType
	}
	return order
}

// VerifyChain checks that the wired stage order matches the registry.
func (r *StageRegistry) VerifyChain(wired []string) error {
	declared := r.ChainOrder()
	if len(declared) != len(wired) {
		return fmt.Errorf("registry declares %d chain stages, %d are wired", len(declared), len(wired))
	}
	for i := range declared {
		if declared[i] != wired[i] {
			return fmt.Errorf("chain position %d: registry declares %q, wired %q", i, declared[i], wired[i])
		}
	}
	return nil
}
