// internal/stages/retrieve-rerank/config.go
package retrievererank

type Config struct {
	// KNNLimit is the number of nearest neighbours pulled from the store
	// before reranking.
	KNNLimit int
	// Dimension guards against an embedder/index mismatch; 0 disables the
	// check.
	Dimension int
}

func LoadConfig() *Config {
	return &Config{
		KNNLimit:  10,
		Dimension: 384,
	}
}
