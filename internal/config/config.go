package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/appraisal-engine/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Consensus ConsensusConfig `yaml:"consensus" mapstructure:"consensus"`
	Needs     NeedsConfig     `yaml:"needs" mapstructure:"needs"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings for both model calls.
type AnthropicConfig struct {
	Key                string `yaml:"key" mapstructure:"key"`
	VisionModel        string `yaml:"vision_model" mapstructure:"vision_model"`
	ReasoningModel     string `yaml:"reasoning_model" mapstructure:"reasoning_model"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	RequestsPerMinute  int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ConsensusConfig is the tunable rerun/merge policy. It is immutable and
// supplied per invocation; DefaultConsensusConfig is the named default that
// callers merge overrides into at the orchestrator boundary.
type ConsensusConfig struct {
	ConfidenceThreshold    float64                `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	HighValueThreshold     float64                `yaml:"high_value_threshold" mapstructure:"high_value_threshold"`
	VeryHighValueThreshold float64                `yaml:"very_high_value_threshold" mapstructure:"very_high_value_threshold"`
	HighRiskCategories     []model.DomainCategory `yaml:"high_risk_categories" mapstructure:"high_risk_categories"`
	MaxRuns                int                    `yaml:"max_runs" mapstructure:"max_runs"`
	UseReasoningModel      bool                   `yaml:"use_reasoning_model" mapstructure:"use_reasoning_model"`
	ReasoningModel         string                 `yaml:"reasoning_model" mapstructure:"reasoning_model"`
}

// IsHighRisk reports whether the domain is one of the configured
// hard-to-authenticate categories.
func (c ConsensusConfig) IsHighRisk(domain model.DomainCategory) bool {
	for _, d := range c.HighRiskCategories {
		if d == domain {
			return true
		}
	}
	return false
}

// DefaultConsensusConfig returns the standard rerun/merge policy.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		ConfidenceThreshold:    0.7,
		HighValueThreshold:     1000,
		VeryHighValueThreshold: 10000,
		HighRiskCategories: []model.DomainCategory{
			model.DomainWatches,
			model.DomainJewelry,
			model.DomainArt,
			model.DomainSilver,
		},
		MaxRuns:           5,
		UseReasoningModel: true,
		ReasoningModel:    "claude-opus-4-6",
	}
}

// NeedsConfig tunes the information-need detector. The gain weights on
// individual needs are heuristics, not calibrated probabilities; they exist
// to order needs, and nothing sums or composes them.
type NeedsConfig struct {
	HighValueCutoff     float64            `yaml:"high_value_cutoff" mapstructure:"high_value_cutoff"`
	DocumentationCutoff float64            `yaml:"documentation_cutoff" mapstructure:"documentation_cutoff"`
	Gains               map[string]float64 `yaml:"gains" mapstructure:"gains"`
}

// DefaultNeedsConfig returns the standard detector cutoffs.
func DefaultNeedsConfig() NeedsConfig {
	return NeedsConfig{
		HighValueCutoff:     1000,
		DocumentationCutoff: 5000,
	}
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("APPRAISAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.reasoning_model", "claude-opus-4-6")
	v.SetDefault("anthropic.request_timeout_secs", 60)
	v.SetDefault("anthropic.requests_per_minute", 30)

	defaults := DefaultConsensusConfig()
	v.SetDefault("consensus.confidence_threshold", defaults.ConfidenceThreshold)
	v.SetDefault("consensus.high_value_threshold", defaults.HighValueThreshold)
	v.SetDefault("consensus.very_high_value_threshold", defaults.VeryHighValueThreshold)
	v.SetDefault("consensus.high_risk_categories", defaults.HighRiskCategories)
	v.SetDefault("consensus.max_runs", defaults.MaxRuns)
	v.SetDefault("consensus.use_reasoning_model", defaults.UseReasoningModel)
	v.SetDefault("consensus.reasoning_model", defaults.ReasoningModel)

	needDefaults := DefaultNeedsConfig()
	v.SetDefault("needs.high_value_cutoff", needDefaults.HighValueCutoff)
	v.SetDefault("needs.documentation_cutoff", needDefaults.DocumentationCutoff)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

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
