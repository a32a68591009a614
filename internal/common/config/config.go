// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Pipeline      PipelineConfig     `mapstructure:"pipeline"`
	Database      DatabaseConfig     `mapstructure:"database"`
	VectorStore   VectorStoreConfig  `mapstructure:"vector_store"`
	APIs          APIsConfig         `mapstructure:"apis"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	ListenAddr  string `mapstructure:"listen_addr"`
}

// PipelineConfig holds the orchestrator settings.
type PipelineConfig struct {
	Workers            int    `mapstructure:"workers"`
	QueueSize          int    `mapstructure:"queue_size"`
	StageTimeout       int    `mapstructure:"stage_timeout"` // milliseconds
	DefaultNotifyEmail string `mapstructure:"default_notify_email"`
	RegistryPath       string `mapstructure:"registry_path"`
	ProgressTTL        int    `mapstructure:"progress_ttl"` // seconds
}

type DatabaseConfig struct {
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
}

// VectorStoreConfig selects and parameterizes the employee embedding index.
type VectorStoreConfig struct {
	Backend     string `mapstructure:"backend"` // "redis" or "elasticsearch"
	IndexName   string `mapstructure:"index_name"`
	KeyPrefix   string `mapstructure:"key_prefix"`
	Dimension   int    `mapstructure:"dimension"`
	KNNLimit    int    `mapstructure:"knn_limit"`
	FilterLimit int    `mapstructure:"filter_limit"` // max entries scanned per department
}

// APIsConfig holds settings for the external embedding and reasoning services.
type APIsConfig struct {
	Embedding EmbeddingAPIConfig `mapstructure:"embedding"`
	Reasoning ReasoningAPIConfig `mapstructure:"reasoning"`
}

type EmbeddingAPIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type ReasoningAPIConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
}

// NotificationConfig holds settings for the notify stage.
type NotificationConfig struct {
	Email EmailConfig `mapstructure:"email"`
	SMS   SMSConfig   `mapstructure:"sms"`
	AWS   AWSConfig   `mapstructure:"aws"`
}

type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	FromEmail string `mapstructure:"from_email"`
}

type SMSConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	PhoneNumber string `mapstructure:"phone_number"` // ops alert target for failures
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
