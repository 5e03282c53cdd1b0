package config

import (
	"os"
	"strings"

	"seki/internal/runinfo"

	"gopkg.in/yaml.v3"
)

// Config captures all runtime options for the service and eval harness.
type Config struct {
	ListenAddr string             `yaml:"listen_addr"`
	Generator  GeneratorConfig    `yaml:"generator"`
	Warehouse  WarehouseConfig    `yaml:"warehouse"`
	Eval       EvalConfig         `yaml:"eval"`
	Storage    StorageConfig      `yaml:"storage"`
	Logging    Logging            `yaml:"logging"`
	RunInfo    *runinfo.BasicInfo `yaml:"-"`
}

// GeneratorConfig configures the grammar-constrained LLM backend.
type GeneratorConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	ToolName       string `yaml:"tool_name"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	APIKey         string `yaml:"-"`
}

// WarehouseConfig configures SQL execution against the analytics backend.
// Driver "http" targets a Tinybird-style query API; "mysql" targets a
// ClickHouse MySQL-protocol port via DSN.
type WarehouseConfig struct {
	Driver         string `yaml:"driver"`
	Endpoint       string `yaml:"endpoint"`
	TokenEnv       string `yaml:"token_env"`
	Format         string `yaml:"format"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	DSN            string `yaml:"dsn"`
	Database       string `yaml:"database"`
	MaxConns       int    `yaml:"max_conns"`
	Token          string `yaml:"-"`
}

// EvalConfig configures the eval harness.
type EvalConfig struct {
	CasesPath        string `yaml:"cases_path"`
	Concurrency      int    `yaml:"concurrency"`
	PreflightSamples int    `yaml:"preflight_samples"`
	PreflightSeed    int64  `yaml:"preflight_seed"`
	RunOnStartup     bool   `yaml:"run_on_startup"`
	OutputDir        string `yaml:"output_dir"`
	Archive          bool   `yaml:"archive"`
}

// Logging controls stdout logging behavior.
type Logging struct {
	Verbose bool `yaml:"verbose"`
}

// StorageConfig holds external storage settings for eval reports.
type StorageConfig struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
}

// CloudEnabled reports whether any cloud storage backend is enabled.
func (s StorageConfig) CloudEnabled() bool {
	return s.GCS.Enabled || s.S3.Enabled
}

// S3Config configures S3 uploads (AWS and S3-compatible endpoints).
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// GCSConfig configures GCS uploads.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Load reads configuration from a YAML file over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	normalizeConfig(&cfg)
	cfg.RunInfo = runinfo.FromEnv()
	return cfg, nil
}

// Default returns the built-in configuration with secrets resolved
// from the environment. Used when no config file is given.
func Default() Config {
	cfg := defaultConfig()
	normalizeConfig(&cfg)
	cfg.RunInfo = runinfo.FromEnv()
	return cfg
}

const (
	generatorTimeoutDefault = 30
	warehouseTimeoutDefault = 30

	evalConcurrencyDefault      = 4
	evalPreflightSamplesDefault = 200
)

func normalizeConfig(cfg *Config) {
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	cfg.Generator.Endpoint = strings.TrimSpace(cfg.Generator.Endpoint)
	cfg.Generator.Model = strings.TrimSpace(cfg.Generator.Model)
	cfg.Generator.ToolName = strings.TrimSpace(cfg.Generator.ToolName)
	if cfg.Generator.ToolName == "" {
		cfg.Generator.ToolName = "sql_grammar"
	}
	if cfg.Generator.TimeoutSeconds <= 0 {
		cfg.Generator.TimeoutSeconds = generatorTimeoutDefault
	}
	if cfg.Generator.APIKeyEnv != "" {
		cfg.Generator.APIKey = strings.TrimSpace(os.Getenv(cfg.Generator.APIKeyEnv))
	}

	cfg.Warehouse.Driver = strings.ToLower(strings.TrimSpace(cfg.Warehouse.Driver))
	if cfg.Warehouse.Driver == "" {
		cfg.Warehouse.Driver = "http"
	}
	cfg.Warehouse.Format = strings.ToLower(strings.TrimSpace(cfg.Warehouse.Format))
	if cfg.Warehouse.Format == "" {
		cfg.Warehouse.Format = "json"
	}
	if cfg.Warehouse.TimeoutSeconds <= 0 {
		cfg.Warehouse.TimeoutSeconds = warehouseTimeoutDefault
	}
	if cfg.Warehouse.MaxConns <= 0 {
		cfg.Warehouse.MaxConns = 4
	}
	if cfg.Warehouse.Database != "" {
		cfg.Warehouse.DSN = ensureDatabaseInDSN(cfg.Warehouse.DSN, cfg.Warehouse.Database)
	}
	if cfg.Warehouse.TokenEnv != "" {
		cfg.Warehouse.Token = strings.TrimSpace(os.Getenv(cfg.Warehouse.TokenEnv))
	}

	cfg.Eval.CasesPath = strings.TrimSpace(cfg.Eval.CasesPath)
	if cfg.Eval.CasesPath == "" {
		cfg.Eval.CasesPath = "evals/cases.json"
	}
	if cfg.Eval.Concurrency <= 0 {
		cfg.Eval.Concurrency = evalConcurrencyDefault
	}
	// Zero disables the preflight; only negatives are invalid.
	if cfg.Eval.PreflightSamples < 0 {
		cfg.Eval.PreflightSamples = 0
	}
	if cfg.Eval.PreflightSeed == 0 {
		cfg.Eval.PreflightSeed = 1
	}
	if cfg.Eval.OutputDir == "" {
		cfg.Eval.OutputDir = "reports"
	}
}

// ensureDatabaseInDSN appends dbName to a mysql-style DSN whose path
// segment is empty. Query parameters are preserved.
func ensureDatabaseInDSN(dsn string, dbName string) string {
	if dsn == "" || dbName == "" {
		return dsn
	}
	slash := strings.Index(dsn, "/")
	if slash < 0 {
		return dsn
	}
	query := strings.Index(dsn[slash+1:], "?")
	if query >= 0 {
		query = slash + 1 + query
	}
	afterSlash := dsn[slash+1:]
	if query >= 0 {
		afterSlash = dsn[slash+1 : query]
	}
	if strings.TrimSpace(afterSlash) != "" {
		return dsn
	}
	if query >= 0 {
		return dsn[:slash+1] + dbName + dsn[query:]
	}
	return dsn + dbName
}

func defaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		Generator: GeneratorConfig{
			Endpoint:       "https://api.openai.com/v1/responses",
			Model:          "gpt-5",
			ToolName:       "sql_grammar",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: generatorTimeoutDefault,
		},
		Warehouse: WarehouseConfig{
			Driver:         "http",
			Endpoint:       "https://api.tinybird.co/v0/sql",
			TokenEnv:       "TINYBIRD_TOKEN",
			Format:         "json",
			TimeoutSeconds: warehouseTimeoutDefault,
			DSN:            "root:@tcp(127.0.0.1:9004)/",
			Database:       "default",
			MaxConns:       4,
		},
		Eval: EvalConfig{
			CasesPath:        "evals/cases.json",
			Concurrency:      evalConcurrencyDefault,
			PreflightSamples: evalPreflightSamplesDefault,
			PreflightSeed:    1,
			RunOnStartup:     true,
			OutputDir:        "reports",
			Archive:          true,
		},
	}
}
