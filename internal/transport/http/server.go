package http

import (
	"github.com/gin-gonic/gin"

	"claim-evaluator/internal/bootstrap"
	"claim-evaluator/internal/transport/http/handler"
	"claim-evaluator/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	// nil keys every client by its socket address.
	if err := router.SetTrustedProxies(app.Config.App.TrustedProxies); err != nil {
		app.Logger.Error("invalid trusted proxies, ignoring X-Forwarded-For", "error", err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		gin.Logger(),
		middleware.Recovery(app.Logger, !app.Config.IsProduction()),
		middleware.CORS(app.Config.App.CORSOrigins),
		middleware.SessionID(),
		middleware.CacheControl(),
	)

	documentsDir := app.Files.DocumentsDir()
	healthHandler := handler.NewHealthHandler(app)
	documentHandler := handler.NewDocumentHandler(app.Documents, documentsDir, handler.UploadLimits{
		MaxFiles:    app.Config.Upload.MaxFiles,
		MaxFileSize: app.Config.MaxFileSizeBytes(),
	})
	analysisHandler := handler.NewAnalysisHandler(app.Analyses, documentsDir)
	fileHandler := handler.NewFileHandler(app.Files)
	progressHandler := handler.NewProgressHandler(app.Hub)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/ws/analysis-progress", progressHandler.Connect)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(app.Limiter, app.Logger))
	api.GET("/health", healthHandler.Ping)

	documents := api.Group("/documents")
	documents.GET("", documentHandler.List)
	documents.POST("/upload", documentHandler.Upload)
	documents.POST("/load-sample-batch", documentHandler.LoadSampleBatch)

	analysisGroup := api.Group("/analysis")
	analysisGroup.POST("/create", analysisHandler.Create)
	analysisGroup.POST("/batch-analyze", analysisHandler.BatchAnalyze)
	analysisGroup.GET("/latest", analysisHandler.Latest)
	api.POST("/quick-analysis", analysisHandler.Quick)
	api.POST("/comprehensive-analysis", analysisHandler.Comprehensive)

	files := api.Group("/files")
	files.GET("/latest", fileHandler.Latest)
	files.GET("/pc-scan", fileHandler.PCScan)

	return router
}
