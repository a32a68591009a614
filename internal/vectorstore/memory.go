// internal/vectorstore/memory.go
package vectorstore

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a brute-force in-memory Store used by tests and local
// development. It applies the same exact department filter and cosine ranking
// semantics as the production backends.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	entries   []Entry
	vectors   [][]float32
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return errors.New("index dimension already fixed")
	}
	s.dimension = dimension
	return nil
}

func (s *MemoryStore) Put(ctx context.Context, entry Entry) error {
	if err := s.EnsureIndex(ctx, len(entry.Vector)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(entry.Vector) != s.dimension {
		return errors.New("vector dimension mismatch")
	}
	for i := range s.entries {
		if s.entries[i].Key == entry.Key {
			s.entries[i] = entry
			s.vectors[i] = entry.Vector
			return nil
		}
	}
	s.entries = append(s.entries, entry)
	s.vectors = append(s.vectors, entry.Vector)
	return nil
}

func (s *MemoryStore) QueryByFilter(ctx context.Context, department string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Department == department {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) KNN(ctx context.Context, department string, vector []float32, k int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry Entry
		score float64
	}
	var matches []scored
	for i, e := range s.entries {
		if e.Department != department {
			continue
		}
		matches = append(matches, scored{entry: e, score: cosine(s.vectors[i], vector)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if k > len(matches) {
		k = len(matches)
	}
	out := make([]Entry, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, matches[i].entry)
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
