package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	EnvProduction = "production"

	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	StorageLocal = "local"
	StorageMinIO = "minio"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"

	StrategyRules = "rules"
	StrategyLLM   = "llm"
)

type Config struct {
	App       AppConfig       `toml:"app"`
	Upload    UploadConfig    `toml:"upload"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Documents DocumentsConfig `toml:"documents"`
	Cache     CacheConfig     `toml:"cache"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	RabbitMQ  RabbitMQConfig  `toml:"rabbitmq"`
	Storage   StorageConfig   `toml:"storage"`
	LLM       LLMConfig       `toml:"llm"`
}

// AppConfig.TrustedProxies lists the proxy addresses or CIDRs whose
// X-Forwarded-For is believed. Empty means the socket address identifies the
// client.
type AppConfig struct {
	Name           string   `toml:"name"`
	Env            string   `toml:"env"`
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	GinMode        string   `toml:"gin_mode"`
	CORSOrigins    []string `toml:"cors_origins"`
	TrustedProxies []string `toml:"trusted_proxies"`
}

type UploadConfig struct {
	MaxFileSizeMB  int    `toml:"max_file_size_mb"`
	MaxFiles       int    `toml:"max_files"`
	Dir            string `toml:"dir"`
	ParseTimeoutMS int    `toml:"parse_timeout_ms"`
}

type RateLimitConfig struct {
	Requests         int     `toml:"requests"`
	WindowMS         int     `toml:"window_ms"`
	AnalysisFraction float64 `toml:"analysis_fraction"`
	Backend          string  `toml:"backend"`
}

type DocumentsConfig struct {
	Directory       string   `toml:"directory"`
	ScanDirectories []string `toml:"scan_directories"`
	ScanLimit       int      `toml:"scan_limit"`
	ScanFileTypes   []string `toml:"scan_file_types"`
}

type CacheConfig struct {
	MaxEntries         int `toml:"max_entries"`
	TTLMS              int `toml:"ttl_ms"`
	AnalysisTTLSeconds int `toml:"analysis_ttl_seconds"`
}

type DatabaseConfig struct {
	Driver     string `toml:"driver"`
	SQLitePath string `toml:"sqlite_path"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	DB         string `toml:"db"`
	Params     string `toml:"params"`
}

// RedisConfig leaves Addr empty to run without Redis.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// RabbitMQConfig leaves URL empty to run without the event bus.
type RabbitMQConfig struct {
	URL           string `toml:"url"`
	AnalysisQueue string `toml:"analysis_queue"`
}

type StorageConfig struct {
	Driver         string `toml:"driver"`
	MinIOEndpoint  string `toml:"minio_endpoint"`
	MinIOAccessKey string `toml:"minio_access_key"`
	MinIOSecretKey string `toml:"minio_secret_key"`
	MinIOUseSSL    bool   `toml:"minio_use_ssl"`
	MinIOBucket    string `toml:"minio_bucket"`
}

type LLMConfig struct {
	Strategy string `toml:"strategy"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
}

func Load() (*Config, error) {
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file failed: %w", err)
	}

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Upload.MaxFileSizeMB <= 0 {
		errs = append(errs, errors.New("upload.max_file_size_mb must be positive"))
	}
	for _, proxy := range c.App.TrustedProxies {
		if !validProxy(proxy) {
			errs = append(errs, fmt.Errorf("app.trusted_proxies: %q is not an IP or CIDR", proxy))
		}
	}
	if c.Upload.MaxFiles <= 0 {
		errs = append(errs, errors.New("upload.max_files must be positive"))
	}
	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("rate_limit.requests must be positive"))
	}
	if c.RateLimit.WindowMS <= 0 {
		errs = append(errs, errors.New("rate_limit.window_ms must be positive"))
	}
	if c.RateLimit.AnalysisFraction <= 0 || c.RateLimit.AnalysisFraction > 1 {
		errs = append(errs, errors.New("rate_limit.analysis_fraction must be in (0, 1]"))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	switch c.Storage.Driver {
	case StorageLocal, StorageMinIO:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch c.RateLimit.Backend {
	case RateLimitMemory:
	case RateLimitRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("rate_limit.backend=redis requires redis.addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend))
	}
	switch c.LLM.Strategy {
	case StrategyRules, StrategyLLM:
	default:
		errs = append(errs, fmt.Errorf("unknown llm.strategy %q", c.LLM.Strategy))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DB,
		c.Database.Params,
	)
}

func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Upload.MaxFileSizeMB) << 20
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMS) * time.Millisecond
}

func (c *Config) ParseTimeout() time.Duration {
	return time.Duration(c.Upload.ParseTimeoutMS) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMS) * time.Millisecond
}

func (c *Config) AnalysisCacheTTL() time.Duration {
	return time.Duration(c.Cache.AnalysisTTLSeconds) * time.Second
}

func defaultConfig() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	documentsDir := filepath.Join(cwd, "sample_input_documents")

	return &Config{
		App: AppConfig{
			Name:    "claim-evaluator",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    5003,
			GinMode: "debug",
			CORSOrigins: []string{
				"http://localhost:5003",
				"http://localhost:5000",
				"http://localhost:3000",
			},
		},
		Upload: UploadConfig{
			MaxFileSizeMB:  50,
			MaxFiles:       10,
			Dir:            "uploads",
			ParseTimeoutMS: 30000,
		},
		RateLimit: RateLimitConfig{
			Requests:         100,
			WindowMS:         60000,
			AnalysisFraction: 0.3,
			Backend:          RateLimitMemory,
		},
		Documents: DocumentsConfig{
			Directory:       documentsDir,
			ScanDirectories: defaultScanDirectories(cwd, documentsDir),
			ScanLimit:       100,
			ScanFileTypes:   []string{".pdf", ".doc", ".docx", ".xlsx", ".xls", ".txt", ".tex", ".md", ".json"},
		},
		Cache: CacheConfig{
			MaxEntries:         1000,
			TTLMS:              900000,
			AnalysisTTLSeconds: 300,
		},
		Database: DatabaseConfig{
			Driver:     DriverSQLite,
			SQLitePath: "data/claims.db",
			Host:       "127.0.0.1",
			Port:       3306,
			User:       "root",
			Password:   "",
			DB:         "claim_evaluator",
			Params:     "parseTime=true&loc=Local&charset=utf8mb4",
		},
		Redis: RedisConfig{
			Addr: "",
			DB:   0,
		},
		RabbitMQ: RabbitMQConfig{
			URL:           "",
			AnalysisQueue: "claims.analysis.completed",
		},
		Storage: StorageConfig{
			Driver:      StorageLocal,
			MinIOBucket: "claim-documents",
		},
		LLM: LLMConfig{
			Strategy: StrategyRules,
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
		},
	}
}

func defaultScanDirectories(cwd, documentsDir string) []string {
	dirs := make([]string, 0, 5)
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, "Documents"),
			filepath.Join(home, "Desktop"),
			filepath.Join(home, "Downloads"),
		)
	}
	return append(dirs, cwd, documentsDir)
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.CORSOrigins = getEnvAsList("CORS_ORIGIN", cfg.App.CORSOrigins)
	cfg.App.TrustedProxies = getEnvAsList("TRUSTED_PROXIES", cfg.App.TrustedProxies)

	cfg.Upload.MaxFileSizeMB = getEnvAsInt("MAX_FILE_SIZE", cfg.Upload.MaxFileSizeMB)
	cfg.Upload.MaxFiles = getEnvAsInt("MAX_UPLOAD_FILES", cfg.Upload.MaxFiles)
	cfg.Upload.Dir = getEnv("UPLOAD_DIR", cfg.Upload.Dir)
	cfg.Upload.ParseTimeoutMS = getEnvAsInt("PARSE_TIMEOUT_MS", cfg.Upload.ParseTimeoutMS)

	cfg.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.WindowMS = getEnvAsInt("RATE_LIMIT_WINDOW_MS", cfg.RateLimit.WindowMS)
	cfg.RateLimit.Backend = getEnv("RATE_LIMIT_BACKEND", cfg.RateLimit.Backend)

	cfg.Documents.Directory = getEnv("DOCUMENTS_DIRECTORY", cfg.Documents.Directory)
	cfg.Documents.ScanDirectories = getEnvAsList("SCAN_DIRECTORIES", cfg.Documents.ScanDirectories)

	cfg.Cache.MaxEntries = getEnvAsInt("CACHE_MAX_SIZE", cfg.Cache.MaxEntries)
	cfg.Cache.TTLMS = getEnvAsInt("CACHE_TTL", cfg.Cache.TTLMS)

	cfg.Database.Driver = getEnv("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.SQLitePath = getEnv("SQLITE_PATH", cfg.Database.SQLitePath)
	cfg.Database.Host = getEnv("MYSQL_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("MYSQL_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("MYSQL_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("MYSQL_PASSWORD", cfg.Database.Password)
	cfg.Database.DB = getEnv("MYSQL_DB", cfg.Database.DB)
	cfg.Database.Params = getEnv("MYSQL_PARAMS", cfg.Database.Params)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.AnalysisQueue = getEnv("RABBITMQ_ANALYSIS_QUEUE", cfg.RabbitMQ.AnalysisQueue)

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.MinIOEndpoint = getEnv("MINIO_ENDPOINT", cfg.Storage.MinIOEndpoint)
	cfg.Storage.MinIOAccessKey = getEnv("MINIO_ACCESS_KEY", cfg.Storage.MinIOAccessKey)
	cfg.Storage.MinIOSecretKey = getEnv("MINIO_SECRET_KEY", cfg.Storage.MinIOSecretKey)
	cfg.Storage.MinIOUseSSL = getEnvAsBool("MINIO_USE_SSL", cfg.Storage.MinIOUseSSL)
	cfg.Storage.MinIOBucket = getEnv("MINIO_BUCKET", cfg.Storage.MinIOBucket)

	cfg.LLM.Strategy = getEnv("ANALYSIS_STRATEGY", cfg.LLM.Strategy)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
