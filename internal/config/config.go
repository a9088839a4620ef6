// Package config loads application configuration from file and environment
// and bootstraps the global logger.
package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Checklists ChecklistsConfig `yaml:"checklists" mapstructure:"checklists"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// OutputConfig locates the run directory tree.
type OutputConfig struct {
	// Directory is the base for all run directories. Resolved to absolute
	// form at load time.
	Directory string `yaml:"directory" mapstructure:"directory"`
}

// ChecklistsConfig configures checklist file resolution.
type ChecklistsConfig struct {
	// Dir overrides the store's search path when set.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// AnthropicConfig holds LLM provider settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	ClassifierModel   string  `yaml:"classifier_model" mapstructure:"classifier_model"`
	ExtractorModel    string  `yaml:"extractor_model" mapstructure:"extractor_model"`
	ValidatorModel    string  `yaml:"validator_model" mapstructure:"validator_model"`
	MaxInflight       int     `yaml:"max_inflight" mapstructure:"max_inflight"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EngineConfig holds the orchestrator's concurrency budgets.
type EngineConfig struct {
	MaxParallelJobs   int  `yaml:"max_parallel_jobs" mapstructure:"max_parallel_jobs"`
	MaxParallelFiles  int  `yaml:"max_parallel_files" mapstructure:"max_parallel_files"`
	TariffLineChecks  bool `yaml:"tariff_line_checks" mapstructure:"tariff_line_checks"`
	AllocatorAttempts int  `yaml:"allocator_attempts" mapstructure:"allocator_attempts"`
}

// RetryConfig holds the stage retry envelope settings.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig holds provider circuit breaker settings.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port              int `yaml:"port" mapstructure:"port"`
	MaxUploadBytes    int `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	ShutdownGraceSecs int `yaml:"shutdown_grace_secs" mapstructure:"shutdown_grace_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Deployment contract: these names are fixed regardless of the prefix.
	_ = v.BindEnv("output.directory", "AUDIT_OUTPUT_DIRECTORY", "OUTPUT_DIRECTORY")
	_ = v.BindEnv("checklists.dir", "AUDIT_CHECKLISTS_DIR", "CHECKLISTS_DIR")
	_ = v.BindEnv("anthropic.key", "AUDIT_ANTHROPIC_KEY", "LLM_API_KEY")

	v.SetDefault("output.directory", "./output")
	v.SetDefault("anthropic.classifier_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.extractor_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.validator_model", "claude-opus-4-6")
	v.SetDefault("anthropic.max_inflight", 100)
	v.SetDefault("anthropic.requests_per_second", 0)
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("engine.max_parallel_jobs", 4)
	v.SetDefault("engine.max_parallel_files", 8)
	v.SetDefault("engine.tariff_line_checks", false)
	v.SetDefault("engine.allocator_attempts", 64)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.2)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_upload_bytes", 256<<20)
	v.SetDefault("server.shutdown_grace_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	abs, err := filepath.Abs(cfg.Output.Directory)
	if err != nil {
		return nil, eris.Wrap(err, "config: resolve output directory")
	}
	cfg.Output.Directory = abs

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
