package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "config.toml"))
	t.Setenv("ENV_FILE", filepath.Join(dir, ".env"))
	for _, key := range []string{
		"MAX_FILE_SIZE", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW_MS", "RATE_LIMIT_BACKEND",
		"DOCUMENTS_DIRECTORY", "CACHE_MAX_SIZE", "CACHE_TTL", "PORT", "APP_ENV", "REDIS_ADDR",
		"TRUSTED_PROXIES", "MAX_UPLOAD_FILES",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Upload.MaxFileSizeMB != 50 || cfg.MaxFileSizeBytes() != 50<<20 {
		t.Fatalf("max file size = %d", cfg.Upload.MaxFileSizeMB)
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimitWindow() != time.Minute {
		t.Fatalf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.App.Port != 5003 || cfg.HTTPAddr() != "0.0.0.0:5003" {
		t.Fatalf("addr = %s", cfg.HTTPAddr())
	}
	if cfg.CacheTTL() != 15*time.Minute || cfg.Cache.MaxEntries != 1000 {
		t.Fatalf("cache = %+v", cfg.Cache)
	}
	if !strings.HasSuffix(cfg.Documents.Directory, "sample_input_documents") {
		t.Fatalf("documents dir = %s", cfg.Documents.Directory)
	}
	if cfg.IsProduction() {
		t.Fatal("default env must not be production")
	}
	if cfg.App.TrustedProxies != nil {
		t.Fatalf("trusted proxies = %q, want none", cfg.App.TrustedProxies)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	toml := `
[app]
env = "production"
port = 8080

[rate_limit]
requests = 10
window_ms = 1000

[database]
driver = "mysql"
host = "db"
db = "claims"
params = "parseTime=true"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CACHE_MAX_SIZE=7\nRATE_LIMIT_REQUESTS=99\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RATE_LIMIT_REQUESTS", "20")
	t.Setenv("MAX_FILE_SIZE", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CACHE_MAX_SIZE") })

	if !cfg.IsProduction() || cfg.App.Port != 8080 {
		t.Fatalf("app = %+v", cfg.App)
	}
	// The process environment wins over .env.
	if cfg.RateLimit.Requests != 20 {
		t.Fatalf("requests = %d", cfg.RateLimit.Requests)
	}
	if cfg.Cache.MaxEntries != 7 {
		t.Fatalf("cache max entries = %d", cfg.Cache.MaxEntries)
	}
	if cfg.RateLimitWindow() != time.Second || cfg.Upload.MaxFileSizeMB != 5 {
		t.Fatalf("window = %s, size = %d", cfg.RateLimitWindow(), cfg.Upload.MaxFileSizeMB)
	}
	if got := cfg.MySQLDSN(); got != "root:@tcp(db:3306)/claims?parseTime=true" {
		t.Fatalf("dsn = %s", got)
	}
}

func TestLoadRejectsMalformedEnvFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BROKEN=\"no closing quote\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "load env file") {
		t.Fatalf("Load() = %v, want env file error", err)
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	isolate(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 172.16.0.0/12")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.App.TrustedProxies) != 2 || cfg.App.TrustedProxies[1] != "172.16.0.0/12" {
		t.Fatalf("trusted proxies = %q", cfg.App.TrustedProxies)
	}
	if cfg.Upload.MaxFiles != 10 {
		t.Fatalf("max files = %d", cfg.Upload.MaxFiles)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "zero size", mutate: func(c *Config) { c.Upload.MaxFileSizeMB = 0 }, want: "max_file_size_mb"},
		{name: "zero requests", mutate: func(c *Config) { c.RateLimit.Requests = 0 }, want: "rate_limit.requests"},
		{name: "negative window", mutate: func(c *Config) { c.RateLimit.WindowMS = -1 }, want: "rate_limit.window_ms"},
		{name: "fraction", mutate: func(c *Config) { c.RateLimit.AnalysisFraction = 1.5 }, want: "analysis_fraction"},
		{name: "driver", mutate: func(c *Config) { c.Database.Driver = "postgres" }, want: "database.driver"},
		{name: "redis backend", mutate: func(c *Config) { c.RateLimit.Backend = RateLimitRedis }, want: "requires redis.addr"},
		{name: "strategy", mutate: func(c *Config) { c.LLM.Strategy = "random" }, want: "llm.strategy"},
		{name: "max files", mutate: func(c *Config) { c.Upload.MaxFiles = 0 }, want: "upload.max_files"},
		{name: "trusted proxy", mutate: func(c *Config) { c.App.TrustedProxies = []string{"10.0.0.0/8", "not-an-ip"} }, want: "app.trusted_proxies"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("CORS_ORIGIN", " http://a , ,http://b ")
	got := getEnvAsList("CORS_ORIGIN", nil)
	if len(got) != 2 || got[0] != "http://a" || got[1] != "http://b" {
		t.Fatalf("getEnvAsList = %q", got)
	}
	t.Setenv("CORS_ORIGIN", "  ")
	if got := getEnvAsList("CORS_ORIGIN", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("blank value should fall back, got %q", got)
	}
}
