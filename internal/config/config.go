package config

import "time"

// Config is the gateway configuration assembled from defaults, an optional
// config.yaml, a .env file and the process environment.
type Config struct {
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Upstream    UpstreamConfig    `mapstructure:"upstream"`
	Extraction  ExtractionConfig  `mapstructure:"extraction"`
	Workflow    WorkflowConfig    `mapstructure:"workflow"`
	Session     SessionConfig     `mapstructure:"session"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// UpstreamConfig describes the workflow-execution API the gateway proxies to.
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	User           string        `mapstructure:"user"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // blocking calls only
	Keys           KeysConfig    `mapstructure:"keys"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// KeysConfig holds one credential per key class.
type KeysConfig struct {
	Workflow   string `mapstructure:"workflow"`
	API        string `mapstructure:"api"`
	Chat       string `mapstructure:"chat"`
	Completion string `mapstructure:"completion"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// ExtractionConfig controls the recursive content search.
type ExtractionConfig struct {
	MinLength int      `mapstructure:"min_length"`
	MaxDepth  int      `mapstructure:"max_depth"`
	Fields    []string `mapstructure:"fields"`
}

type WorkflowConfig struct {
	RequiredInputs []string `mapstructure:"required_inputs"`
}

type SessionConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Store     string        `mapstructure:"store"` // memory, redis or postgres
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	RecordTTL time.Duration `mapstructure:"record_ttl"` // 0 keeps records until overwritten
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	ImageModel string `mapstructure:"image_model"`
}

// DiagnosticsConfig guards the GET configuration echo. An empty hash leaves it open.
type DiagnosticsConfig struct {
	TokenHash string `mapstructure:"token_hash"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig selects where spans go. Metrics are always served on /metrics.
type TelemetryConfig struct {
	ServiceName   string `mapstructure:"service_name"`
	TraceExporter string `mapstructure:"trace_exporter"` // stdout or none
}

// IsProduction reports whether the gateway runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
