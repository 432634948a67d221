package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pnct-tools/container-query/internal/domain"
)

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level string `mapstructure:"log_level"`
	JSON  bool   `mapstructure:"json"`
}

// UpstreamConfig describes the terminal tracking API.
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	SiteID    string        `mapstructure:"site_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// LookupConfig configures the fetch activity and how it is orchestrated.
type LookupConfig struct {
	// Runner is "temporal" or "inline".
	Runner               string             `mapstructure:"runner"`
	MinContainerIDLength int                `mapstructure:"min_container_id_length"`
	Retry                domain.RetryPolicy `mapstructure:"retry"`
}

// TemporalConfig holds Temporal client and worker settings.
type TemporalConfig struct {
	HostPort         string        `mapstructure:"host_port"`
	Namespace        string        `mapstructure:"namespace"`
	TaskQueue        string        `mapstructure:"task_queue"`
	WorkflowIDPrefix string        `mapstructure:"workflow_id_prefix"`
	Tracing          bool          `mapstructure:"tracing"`
	ResultTimeout    time.Duration `mapstructure:"result_timeout"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// ExtractorConfig selects and configures the natural-language intent
// extractor.
type ExtractorConfig struct {
	// Provider is "gemini", "openai" or "keyword".
	Provider string `mapstructure:"provider"`
	// Narrate lets the model phrase the final answer from the lookup result.
	Narrate bool         `mapstructure:"narrate"`
	Rate    float64      `mapstructure:"rate"`
	Burst   int          `mapstructure:"burst"`
	Gemini  GeminiConfig `mapstructure:"gemini"`
	OpenAI  OpenAIConfig `mapstructure:"openai"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	EmbeddedWorker  bool          `mapstructure:"embedded_worker"`
}

// Config is the top-level configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   LoggingConfig   `mapstructure:"log"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Lookup    LookupConfig    `mapstructure:"lookup"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Server    ServerConfig    `mapstructure:"server"`
}

const (
	RunnerTemporal = "temporal"
	RunnerInline   = "inline"

	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	ProviderKeyword = "keyword"
)

// LoadDotEnv loads .env and then .env.<APP_ENV> over it. Missing files are
// skipped; the names of the files that were loaded are returned.
func LoadDotEnv() ([]string, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}

	var loaded []string
	for i, name := range []string{".env", ".env." + appEnv} {
		if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
			continue
		}
		load := godotenv.Load
		if i > 0 {
			load = godotenv.Overload
		}
		if err := load(name); err != nil {
			return loaded, fmt.Errorf("load %s: %w", name, err)
		}
		loaded = append(loaded, name)
	}
	return loaded, nil
}

// SetDefaults registers every key with its default so that environment
// variables can override any of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "container-query")
	v.SetDefault("app.env", "dev")
	v.SetDefault("log.log_level", "INFO")
	v.SetDefault("log.json", false)

	v.SetDefault("upstream.base_url", "https://twpapi.pachesapeake.com/api/track/GetContainers")
	v.SetDefault("upstream.site_id", "PNCT_NJ")
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.user_agent", "container-query/1.0")

	retry := domain.DefaultRetryPolicy()
	v.SetDefault("lookup.runner", RunnerTemporal)
	v.SetDefault("lookup.min_container_id_length", 4)
	v.SetDefault("lookup.retry.initial_interval", retry.InitialInterval)
	v.SetDefault("lookup.retry.backoff_coefficient", retry.BackoffCoefficient)
	v.SetDefault("lookup.retry.maximum_interval", retry.MaximumInterval)
	v.SetDefault("lookup.retry.maximum_attempts", retry.MaximumAttempts)
	v.SetDefault("lookup.retry.start_to_close_timeout", retry.StartToCloseTimeout)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "pnct-scraper-queue")
	v.SetDefault("temporal.workflow_id_prefix", "pnct-lookup")
	v.SetDefault("temporal.tracing", false)
	v.SetDefault("temporal.result_timeout", 5*time.Minute)

	v.SetDefault("extractor.provider", ProviderGemini)
	v.SetDefault("extractor.narrate", true)
	v.SetDefault("extractor.rate", 1.0)
	v.SetDefault("extractor.burst", 5)
	v.SetDefault("extractor.gemini.api_key", "")
	v.SetDefault("extractor.gemini.model", "gemini-2.0-flash")
	v.SetDefault("extractor.openai.api_key", "")
	v.SetDefault("extractor.openai.model", "openai/gpt-4o-mini")
	v.SetDefault("extractor.openai.base_url", "https://openrouter.ai/api/v1")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.embedded_worker", true)
}

// InitConfig performs the initial configuration: setting defaults, binding
// environment variables, and reading the config file. An empty cfgFile looks
// for config.yaml in the working directory and tolerates its absence.
func InitConfig(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config") // Looks for config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Variable names used by earlier deployments.
	bindings := map[string][]string{
		"extractor.gemini.api_key": {"EXTRACTOR_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"extractor.openai.api_key": {"EXTRACTOR_OPENAI_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY"},
		"temporal.host_port":       {"TEMPORAL_HOST_PORT", "TEMPORAL_HOST"},
		"upstream.base_url":        {"UPSTREAM_BASE_URL", "PNCT_API_BASE_URL"},
		"upstream.site_id":         {"UPSTREAM_SITE_ID", "PNCT_SITE_ID"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	return nil
}

// Load unmarshals the configuration into the Config struct and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url is required")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	if c.Lookup.MinContainerIDLength < 1 {
		return fmt.Errorf("lookup.min_container_id_length must be at least 1, got %d", c.Lookup.MinContainerIDLength)
	}
	switch c.Lookup.Runner {
	case RunnerTemporal, RunnerInline:
	default:
		return fmt.Errorf("lookup.runner must be %q or %q, got %q", RunnerTemporal, RunnerInline, c.Lookup.Runner)
	}
	if err := c.Lookup.Retry.Validate(); err != nil {
		return fmt.Errorf("lookup.retry: %w", err)
	}
	switch c.Extractor.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderKeyword:
	default:
		return fmt.Errorf("extractor.provider must be one of gemini, openai, keyword, got %q", c.Extractor.Provider)
	}
	if c.Lookup.Runner == RunnerTemporal && c.Temporal.TaskQueue == "" {
		return errors.New("temporal.task_queue is required when lookup.runner is temporal")
	}
	return nil
}
