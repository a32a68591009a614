// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like EMBEDDING_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, e.g. config.production.yaml
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills secrets from the environment when the yaml left
// them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.Embedding.APIKey == "" {
		if val := os.Getenv("EMBEDDING_API_KEY"); val != "" {
			cfg.APIs.Embedding.APIKey = val
		}
	}
	if cfg.APIs.Reasoning.APIKey == "" {
		if val := os.Getenv("REASONING_API_KEY"); val != "" {
			cfg.APIs.Reasoning.APIKey = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Database.Elasticsearch.Password == "" {
		if val := os.Getenv("ELASTICSEARCH_PASSWORD"); val != "" {
			cfg.Database.Elasticsearch.Password = val
		}
	}
	if cfg.Pipeline.DefaultNotifyEmail == "" {
		if val := os.Getenv("NOTIFICATION_EMAIL"); val != "" {
			cfg.Pipeline.DefaultNotifyEmail = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.ListenAddr == "" {
		cfg.App.ListenAddr = ":8080"
	}

	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.QueueSize == 0 {
		cfg.Pipeline.QueueSize = 64
	}
	if cfg.Pipeline.StageTimeout == 0 {
		cfg.Pipeline.StageTimeout = 60000
	}
	if cfg.Pipeline.ProgressTTL == 0 {
		cfg.Pipeline.ProgressTTL = 86400
	}

	if cfg.VectorStore.Backend == "" {
		cfg.VectorStore.Backend = "redis"
	}
	if cfg.VectorStore.IndexName == "" {
		cfg.VectorStore.IndexName = "employee_embeddings"
	}
	if cfg.VectorStore.KeyPrefix == "" {
		cfg.VectorStore.KeyPrefix = "emp:"
	}
	if cfg.VectorStore.Dimension == 0 {
		cfg.VectorStore.Dimension = 384
	}
	if cfg.VectorStore.KNNLimit == 0 {
		cfg.VectorStore.KNNLimit = 10
	}
	if cfg.VectorStore.FilterLimit == 0 {
		cfg.VectorStore.FilterLimit = 1000
	}

	if cfg.APIs.Embedding.Timeout == 0 {
		cfg.APIs.Embedding.Timeout = 30000
	}
	if cfg.APIs.Reasoning.Timeout == 0 {
		cfg.APIs.Reasoning.Timeout = 60000
	}
	if cfg.APIs.Reasoning.MaxRetries == 0 {
		cfg.APIs.Reasoning.MaxRetries = 2
	}
	if cfg.APIs.Reasoning.MaxTokens == 0 {
		cfg.APIs.Reasoning.MaxTokens = 2048
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	switch cfg.VectorStore.Backend {
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis vector store")
		}
	case "elasticsearch":
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses is required for the elasticsearch vector store")
		}
	default:
		return fmt.Errorf("unknown vector_store.backend %q", cfg.VectorStore.Backend)
	}

	if cfg.VectorStore.Dimension <= 0 {
		return fmt.Errorf("vector_store.dimension must be positive")
	}
	if cfg.APIs.Embedding.BaseURL == "" {
		return fmt.Errorf("apis.embedding.base_url is required")
	}
	if cfg.APIs.Reasoning.BaseURL == "" {
		return fmt.Errorf("apis.reasoning.base_url is required")
	}
	if cfg.Notifications.Email.Enabled && cfg.Notifications.Email.FromEmail == "" {
		return fmt.Errorf("notifications.email.from_email is required when email is enabled")
	}

	return nil
}
