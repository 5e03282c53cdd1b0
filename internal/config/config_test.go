package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TINYBIRD_TOKEN", "")

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.Generator.Model != "gpt-5" {
		t.Fatalf("unexpected model: %s", cfg.Generator.Model)
	}
	if cfg.Generator.ToolName != "sql_grammar" {
		t.Fatalf("unexpected tool name: %s", cfg.Generator.ToolName)
	}
	if cfg.Generator.TimeoutSeconds != generatorTimeoutDefault {
		t.Fatalf("unexpected generator timeout: %d", cfg.Generator.TimeoutSeconds)
	}
	if cfg.Warehouse.Driver != "http" {
		t.Fatalf("unexpected warehouse driver: %s", cfg.Warehouse.Driver)
	}
	if cfg.Warehouse.Format != "json" {
		t.Fatalf("unexpected warehouse format: %s", cfg.Warehouse.Format)
	}
	if cfg.Warehouse.DSN != "root:@tcp(127.0.0.1:9004)/default" {
		t.Fatalf("unexpected warehouse dsn: %s", cfg.Warehouse.DSN)
	}
	if cfg.Eval.Concurrency != evalConcurrencyDefault {
		t.Fatalf("unexpected eval concurrency: %d", cfg.Eval.Concurrency)
	}
	if cfg.Eval.CasesPath != "evals/cases.json" {
		t.Fatalf("unexpected cases path: %s", cfg.Eval.CasesPath)
	}
	if !cfg.Eval.Archive {
		t.Fatalf("expected archive enabled by default")
	}
	if cfg.Storage.CloudEnabled() {
		t.Fatalf("expected cloud storage disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	content := `listen_addr: ":9091"
generator:
  model: gpt-5-mini
  timeout_seconds: 5
warehouse:
  driver: MySQL
  dsn: "root:@tcp(10.0.0.7:9004)/"
  database: analytics
eval:
  concurrency: 2
  cases_path: fixtures/cases.json
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":9091" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.Generator.Model != "gpt-5-mini" {
		t.Fatalf("unexpected model: %s", cfg.Generator.Model)
	}
	if cfg.Generator.TimeoutSeconds != 5 {
		t.Fatalf("unexpected generator timeout: %d", cfg.Generator.TimeoutSeconds)
	}
	if cfg.Warehouse.Driver != "mysql" {
		t.Fatalf("expected lowercased driver, got %s", cfg.Warehouse.Driver)
	}
	if cfg.Warehouse.DSN != "root:@tcp(10.0.0.7:9004)/analytics" {
		t.Fatalf("unexpected warehouse dsn: %s", cfg.Warehouse.DSN)
	}
	if cfg.Eval.Concurrency != 2 {
		t.Fatalf("unexpected eval concurrency: %d", cfg.Eval.Concurrency)
	}
	if cfg.Eval.CasesPath != "fixtures/cases.json" {
		t.Fatalf("unexpected cases path: %s", cfg.Eval.CasesPath)
	}
}

func TestLoadResolvesSecrets(t *testing.T) {
	t.Setenv("SEKI_TEST_OPENAI_KEY", "sk-test-123")
	t.Setenv("SEKI_TEST_TB_TOKEN", "p.tok")
	content := `generator:
  api_key_env: SEKI_TEST_OPENAI_KEY
warehouse:
  token_env: SEKI_TEST_TB_TOKEN
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Generator.APIKey != "sk-test-123" {
		t.Fatalf("unexpected api key: %q", cfg.Generator.APIKey)
	}
	if cfg.Warehouse.Token != "p.tok" {
		t.Fatalf("unexpected warehouse token: %q", cfg.Warehouse.Token)
	}
}

func TestNormalizeClampsInvalidValues(t *testing.T) {
	content := `warehouse:
  timeout_seconds: -3
  max_conns: 0
eval:
  concurrency: -1
  preflight_samples: -10
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Warehouse.TimeoutSeconds != warehouseTimeoutDefault {
		t.Fatalf("unexpected warehouse timeout: %d", cfg.Warehouse.TimeoutSeconds)
	}
	if cfg.Warehouse.MaxConns != 4 {
		t.Fatalf("unexpected max conns: %d", cfg.Warehouse.MaxConns)
	}
	if cfg.Eval.Concurrency != evalConcurrencyDefault {
		t.Fatalf("unexpected eval concurrency: %d", cfg.Eval.Concurrency)
	}
	if cfg.Eval.PreflightSamples != 0 {
		t.Fatalf("unexpected preflight samples: %d", cfg.Eval.PreflightSamples)
	}
}

func TestPreflightZeroDisables(t *testing.T) {
	cfg, err := Load(writeConfig(t, "eval:\n  preflight_samples: 0\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Eval.PreflightSamples != 0 {
		t.Fatalf("explicit zero should survive, got %d", cfg.Eval.PreflightSamples)
	}
	if Default().Eval.PreflightSamples != evalPreflightSamplesDefault {
		t.Fatalf("default preflight samples changed")
	}
}

func TestEnsureDatabaseInDSN(t *testing.T) {
	cases := []struct {
		dsn  string
		db   string
		want string
	}{
		{"root:@tcp(127.0.0.1:9004)/", "default", "root:@tcp(127.0.0.1:9004)/default"},
		{"root:@tcp(127.0.0.1:9004)/existing", "default", "root:@tcp(127.0.0.1:9004)/existing"},
		{"root:@tcp(127.0.0.1:9004)/?timeout=5s", "default", "root:@tcp(127.0.0.1:9004)/default?timeout=5s"},
		{"", "default", ""},
		{"root:@tcp(127.0.0.1:9004)/", "", "root:@tcp(127.0.0.1:9004)/"},
	}
	for _, c := range cases {
		if got := ensureDatabaseInDSN(c.dsn, c.db); got != c.want {
			t.Fatalf("ensureDatabaseInDSN(%q, %q) = %q, want %q", c.dsn, c.db, got, c.want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
