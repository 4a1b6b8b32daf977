package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// legacyEnv maps config keys to the environment variable names the first
// deployments of the gateway used. The structured name is tried first.
var legacyEnv = map[string][]string{
	"environment":              {"APP_ENVIRONMENT"},
	"server.port":              {"SERVER_PORT", "PORT"},
	"upstream.base_url":        {"UPSTREAM_BASE_URL", "DIFY_API_URL"},
	"upstream.keys.workflow":   {"UPSTREAM_KEYS_WORKFLOW", "DIFY_API_KEY_001_workflow"},
	"upstream.keys.api":        {"UPSTREAM_KEYS_API", "DIFY_API_KEY_API"},
	"upstream.keys.chat":       {"UPSTREAM_KEYS_CHAT", "DIFY_API_KEY_CHAT"},
	"upstream.keys.completion": {"UPSTREAM_KEYS_COMPLETION", "DIFY_API_KEY_COMPLETION"},
	"session.jwt_secret":       {"SESSION_JWT_SECRET", "JWT_SECRET"},
	"postgres.url":             {"POSTGRES_URL", "DATABASE_URL"},
	"openai.api_key":           {"OPENAI_API_KEY"},
	"openai.base_url":          {"OPENAI_BASE_URL"},
}

// Load reads configuration. Each path is searched for config.yaml; environment
// variables override file values.
func Load(paths ...string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("upstream.base_url", "https://api.dify.ai/v1")
	v.SetDefault("upstream.user", "AmerlinGPT")
	v.SetDefault("upstream.request_timeout", 5*time.Minute)
	v.SetDefault("upstream.keys.workflow", "")
	v.SetDefault("upstream.keys.api", "")
	v.SetDefault("upstream.keys.chat", "")
	v.SetDefault("upstream.keys.completion", "")
	v.SetDefault("upstream.breaker.max_requests", 3)
	v.SetDefault("upstream.breaker.interval", 60*time.Second)
	v.SetDefault("upstream.breaker.timeout", 30*time.Second)
	v.SetDefault("upstream.breaker.consecutive_failures", 5)

	v.SetDefault("extraction.min_length", 50)
	v.SetDefault("extraction.max_depth", 5)
	v.SetDefault("extraction.fields", []string{"output", "answer", "content", "text", "result", "message", "response"})

	v.SetDefault("workflow.required_inputs", []string{"topic"})

	v.SetDefault("session.enabled", false)
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.jwt_secret", "")
	v.SetDefault("session.token_ttl", 7*24*time.Hour)
	v.SetDefault("session.record_ttl", 0)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "research-session:")

	v.SetDefault("postgres.url", "")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.image_model", "dall-e-3")

	v.SetDefault("diagnostics.token_hash", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.service_name", "design-research-gateway")
	v.SetDefault("telemetry.trace_exporter", "stdout")
}

func normalize(cfg *Config) {
	cfg.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Upstream.BaseURL), "/")
	cfg.Session.Store = strings.ToLower(strings.TrimSpace(cfg.Session.Store))
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Telemetry.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.Telemetry.TraceExporter))
	for i, f := range cfg.Workflow.RequiredInputs {
		cfg.Workflow.RequiredInputs[i] = strings.TrimSpace(f)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url is required")
	}
	if strings.TrimSpace(cfg.Upstream.Keys.Workflow) == "" {
		return errors.New("upstream.keys.workflow is required (UPSTREAM_KEYS_WORKFLOW or DIFY_API_KEY_001_workflow)")
	}
	if cfg.Extraction.MinLength < 0 {
		return errors.New("extraction.min_length must not be negative")
	}
	if cfg.Extraction.MaxDepth < 0 {
		return errors.New("extraction.max_depth must not be negative")
	}
	if len(cfg.Extraction.Fields) == 0 {
		return errors.New("extraction.fields must name at least one field")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported logging.level %q", cfg.Logging.Level)
	}

	switch cfg.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported telemetry.trace_exporter %q", cfg.Telemetry.TraceExporter)
	}

	if !cfg.Session.Enabled {
		return nil
	}
	if cfg.Session.JWTSecret == "" {
		return errors.New("session.jwt_secret is required when sessions are enabled")
	}
	switch cfg.Session.Store {
	case "memory":
	case "redis":
		if cfg.Redis.Address == "" {
			return errors.New("redis.address is required for the redis session store")
		}
	case "postgres":
		if cfg.Postgres.URL == "" {
			return errors.New("postgres.url is required for the postgres session store")
		}
	default:
		return fmt.Errorf("unsupported session.store %q", cfg.Session.Store)
	}
	return nil
}

// loadEnvFile loads the first .env found walking up towards the module root.
// Variables already present in the environment win.
func loadEnvFile() {
	candidates := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

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
			return ""
		}
		dir = parent
	}
}
