package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	ETL       ETLConfig       `yaml:"etl" mapstructure:"etl"`
	Segments  SegmentsConfig  `yaml:"segments" mapstructure:"segments"`
	Analytics AnalyticsConfig `yaml:"analytics" mapstructure:"analytics"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	ML        MLConfig        `yaml:"ml" mapstructure:"ml"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Temporal  TemporalConfig  `yaml:"temporal" mapstructure:"temporal"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres relational store.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// WarehouseConfig configures the SQLite analytical mirror.
type WarehouseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ETLConfig configures the extract/transform/load pipeline.
type ETLConfig struct {
	// Source is the customer record file: a local path, an http(s):// URL,
	// or an ftp:// URL.
	Source      string `yaml:"source" mapstructure:"source"`
	Delimiter   string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"` // "utf8" or "latin1"
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay  int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	SyncMirror  bool   `yaml:"sync_mirror" mapstructure:"sync_mirror"`
	RulesFile   string `yaml:"rules_file" mapstructure:"rules_file"`
}

// SegmentsConfig overrides the default segment-rule thresholds. Zero values
// fall back to the built-in defaults; the thresholds are heuristics, not
// derived business constants, so they stay configurable.
type SegmentsConfig struct {
	RiskMonthToMonth  float64 `yaml:"risk_month_to_month" mapstructure:"risk_month_to_month"`
	RiskOneYear       float64 `yaml:"risk_one_year" mapstructure:"risk_one_year"`
	RiskElectronicChk float64 `yaml:"risk_electronic_check" mapstructure:"risk_electronic_check"`
	RiskFiberHighBill float64 `yaml:"risk_fiber_high_bill" mapstructure:"risk_fiber_high_bill"`
	RiskShortTenure   float64 `yaml:"risk_short_tenure" mapstructure:"risk_short_tenure"`
}

// AnalyticsConfig configures report generation.
type AnalyticsConfig struct {
	ReportDir string `yaml:"report_dir" mapstructure:"report_dir"`
}

// ExportConfig configures BI file exports.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// MLConfig configures model training.
type MLConfig struct {
	Seed        int64   `yaml:"seed" mapstructure:"seed"`
	TestFrac    float64 `yaml:"test_frac" mapstructure:"test_frac"`
	Trees       int     `yaml:"trees" mapstructure:"trees"`
	MaxDepth    int     `yaml:"max_depth" mapstructure:"max_depth"`
	LearningRate float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	MaxClusters int     `yaml:"max_clusters" mapstructure:"max_clusters"`
}

// AnthropicConfig holds Anthropic API settings for the chatbot.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// TemporalConfig configures the workflow worker.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// ServerConfig configures the chat HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("CHURN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("warehouse.path", "churn_warehouse.db")
	v.SetDefault("etl.source", "WA_Fn-UseC_-Telco-Customer-Churn.csv")
	v.SetDefault("etl.delimiter", ",")
	v.SetDefault("etl.encoding", "utf8")
	v.SetDefault("etl.batch_size", 5000)
	v.SetDefault("etl.temp_dir", "/tmp/churn-etl")
	v.SetDefault("etl.max_retries", 3)
	v.SetDefault("etl.retry_delay_secs", 10)
	v.SetDefault("etl.user_agent", "churn-cli/1.0")
	v.SetDefault("etl.sync_mirror", false)
	v.SetDefault("analytics.report_dir", "reports")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("ml.seed", 42)
	v.SetDefault("ml.test_frac", 0.2)
	v.SetDefault("ml.trees", 100)
	v.SetDefault("ml.max_depth", 10)
	v.SetDefault("ml.learning_rate", 0.1)
	v.SetDefault("ml.max_clusters", 10)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "churn-etl")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
