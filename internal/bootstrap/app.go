package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"claim-evaluator/internal/ai"
	"claim-evaluator/internal/analysis"
	"claim-evaluator/internal/app"
	"claim-evaluator/internal/blob"
	"claim-evaluator/internal/cache"
	"claim-evaluator/internal/config"
	"claim-evaluator/internal/parser"
	minioClient "claim-evaluator/internal/platform/minio"
	mysqlClient "claim-evaluator/internal/platform/mysql"
	rabbitmqClient "claim-evaluator/internal/platform/rabbitmq"
	redisClient "claim-evaluator/internal/platform/redis"
	sqliteClient "claim-evaluator/internal/platform/sqlite"
	"claim-evaluator/internal/progress"
	"claim-evaluator/internal/ratelimit"
	"claim-evaluator/internal/repository"
	"claim-evaluator/internal/worker"
)

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	CacheWorker *worker.AnalysisCacheWorker
	Hub         *progress.Hub
	Limiter     *ratelimit.Limiter

	Documents *app.DocumentService
	Analyses  *app.AnalysisService
	Files     *app.FileService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg, NewLogger(cfg))
}

// NewLogger returns a text logger in development and a JSON logger in
// production.
func NewLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	opts.Level = slog.LevelDebug
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// NewWithConfig builds every resource described by cfg. Redis and RabbitMQ
// are optional and skipped when their address is empty. On error, anything
// already opened is closed.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *App, err error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.DB, err = openDatabase(ctx, cfg); err != nil {
		return nil, err
	}
	if err = repository.Migrate(a.DB); err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
			return nil, err
		}
	}

	if a.Limiter, err = newLimiter(cfg, a.Redis); err != nil {
		return nil, err
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pipeline := parser.New(parser.Config{MaxFileSize: cfg.MaxFileSizeBytes(), Logger: log})
	uploadParser := parser.WithTimeout(pipeline, cfg.ParseTimeout())
	folderParser := parser.NewCached(uploadParser, cfg.Cache.MaxEntries, cfg.CacheTTL())

	engine := analysis.NewEngine(newStrategy(cfg), log)
	a.Hub = progress.NewHub(cfg.App.CORSOrigins, log)

	docRepo := repository.NewDocumentRepository(a.DB)
	analysisRepo := repository.NewAnalysisRepository(a.DB)

	var latestCache app.LatestAnalysisCache
	var analysisCache *cache.AnalysisCache
	if a.Redis != nil {
		analysisCache = cache.NewAnalysisCache(a.Redis, cfg.AnalysisCacheTTL())
		latestCache = analysisCache
	}

	var publisher app.AnalysisEventPublisher
	if cfg.RabbitMQ.URL != "" {
		if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ); err != nil {
			return nil, err
		}
		publisher = rabbitmqClient.NewAnalysisPublisher(a.MQConn, cfg.RabbitMQ.AnalysisQueue)
		if analysisCache != nil {
			a.CacheWorker = worker.NewAnalysisCacheWorker(a.MQConn, analysisRepo, analysisCache, cfg.RabbitMQ.AnalysisQueue, log)
			if err = a.CacheWorker.Start(ctx); err != nil {
				return nil, fmt.Errorf("start analysis cache worker failed: %w", err)
			}
		}
	}

	a.Documents = app.NewDocumentService(docRepo, uploadParser, folderParser, blobs, cfg.MaxFileSizeBytes(), log)
	a.Analyses = app.NewAnalysisService(docRepo, analysisRepo, engine, folderParser, a.Hub, publisher, latestCache, log)
	a.Files = app.NewFileService(
		cfg.Documents.Directory,
		cfg.Documents.ScanDirectories,
		cfg.Documents.ScanLimit,
		cfg.Documents.ScanFileTypes,
	)

	log.Info("application ready",
		"env", cfg.App.Env,
		"database", cfg.Database.Driver,
		"storage", blobs.Name(),
		"strategy", engine.StrategyName(),
		"redis", a.Redis != nil,
		"rabbitmq", a.MQConn != nil,
	)
	return a, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.IsProduction() {
		gormLogger = logger.Default.LogMode(logger.Error)
	}
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		return mysqlClient.New(ctx, cfg.MySQLDSN(), gormLogger)
	default:
		return sqliteClient.New(ctx, cfg.Database.SQLitePath, gormLogger)
	}
}

func newLimiter(cfg *config.Config, rdb *redis.Client) (*ratelimit.Limiter, error) {
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RateLimit.Backend == config.RateLimitRedis {
		if rdb == nil {
			return nil, errors.New("redis rate limit backend requires a redis connection")
		}
		store = ratelimit.NewRedisStore(rdb, "")
	}
	limiter, err := ratelimit.New(store, ratelimit.Config{
		Requests:         cfg.RateLimit.Requests,
		Window:           cfg.RateLimitWindow(),
		AnalysisFraction: cfg.RateLimit.AnalysisFraction,
	})
	if err != nil {
		return nil, fmt.Errorf("create rate limiter failed: %w", err)
	}
	return limiter, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.Storage.Driver == config.StorageMinIO {
		client, err := minioClient.New(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		return blob.NewMinIOStore(client, cfg.Storage.MinIOBucket), nil
	}
	store, err := blob.NewLocalStore(cfg.Upload.Dir)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newStrategy(cfg *config.Config) analysis.Strategy {
	if cfg.LLM.Strategy == config.StrategyLLM {
		return analysis.NewLLMStrategy(ai.NewClient(ai.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		}))
	}
	return analysis.NewRuleStrategy()
}

func (a *App) Close() error {
	var closeErr error
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.CacheWorker != nil {
		a.CacheWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			closeErr = errors.Join(closeErr, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = errors.Join(closeErr, err)
			}
		}
	}
	return closeErr
}
