package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"claim-evaluator/internal/analysis"
	"claim-evaluator/internal/model"
	"claim-evaluator/internal/parser"
	"claim-evaluator/internal/repository"
	"claim-evaluator/internal/scanner"
)

type AnalysisEventPublisher interface {
	PublishCompleted(ctx context.Context, event model.AnalysisCompletedEvent) error
}

type LatestAnalysisCache interface {
	GetLatest(ctx context.Context) (*model.ClaimsAnalysis, bool, error)
	SetLatest(ctx context.Context, analysis *model.ClaimsAnalysis) error
}

// AnalysisOutcome is a stored analysis together with the engine result.
type AnalysisOutcome struct {
	Analysis *model.ClaimsAnalysis `json:"analysis"`
	Results  *model.AnalysisResult `json:"results"`
}

type BatchAnalysisOutcome struct {
	AnalysisOutcome
	DocumentsAnalyzed int    `json:"documentsAnalyzed"`
	Message           string `json:"message"`
}

type FolderAnalysisOutcome struct {
	Success            bool                  `json:"success"`
	TotalFilesFound    int                   `json:"totalFilesFound"`
	ValidFiles         int                   `json:"validFiles"`
	DocumentsProcessed int                   `json:"documentsProcessed"`
	FailedDocuments    int                   `json:"failedDocuments"`
	Results            *model.AnalysisResult `json:"results"`
	Message            string                `json:"message"`
}

type AnalysisService struct {
	docRepo      *repository.DocumentRepository
	analysisRepo *repository.AnalysisRepository
	engine       *analysis.Engine
	parser       parser.Parser
	progress     analysis.ProgressSink
	publisher    AnalysisEventPublisher
	cache        LatestAnalysisCache
	logger       *slog.Logger
}

// NewAnalysisService wires the engine to storage. progress, publisher and
// cache may be nil.
func NewAnalysisService(
	docRepo *repository.DocumentRepository,
	analysisRepo *repository.AnalysisRepository,
	engine *analysis.Engine,
	p parser.Parser,
	progress analysis.ProgressSink,
	publisher AnalysisEventPublisher,
	cache LatestAnalysisCache,
	logger *slog.Logger,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		docRepo:      docRepo,
		analysisRepo: analysisRepo,
		engine:       engine,
		parser:       p,
		progress:     progress,
		publisher:    publisher,
		cache:        cache,
		logger:       logger,
	}
}

// Create analyzes the stored documents among ids and persists the result.
func (s *AnalysisService) Create(ctx context.Context, ids []string) (*AnalysisOutcome, error) {
	if len(ids) == 0 {
		return nil, validationErrorf("Document IDs are required")
	}
	docs, err := s.docRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, notFoundErrorf("No documents found")
	}
	return s.analyzeAndStore(ctx, docs)
}

// BatchAnalyze analyzes every stored document that parsed successfully.
func (s *AnalysisService) BatchAnalyze(ctx context.Context) (*BatchAnalysisOutcome, error) {
	docs, err := s.docRepo.ListParsed()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, validationErrorf("No valid documents found for analysis. Please upload documents first.")
	}
	outcome, err := s.analyzeAndStore(ctx, docs)
	if err != nil {
		return nil, err
	}
	return &BatchAnalysisOutcome{
		AnalysisOutcome:   *outcome,
		DocumentsAnalyzed: len(docs),
		Message:           fmt.Sprintf("Successfully analyzed %d documents", len(docs)),
	}, nil
}

// Latest returns the newest analysis, or nil when none has been stored.
func (s *AnalysisService) Latest(ctx context.Context) (*model.ClaimsAnalysis, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetLatest(ctx)
		if err != nil {
			s.logger.Warn("read analysis cache failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	latest, err := s.analysisRepo.Latest()
	if err != nil {
		return nil, err
	}
	if latest != nil && s.cache != nil {
		if err := s.cache.SetLatest(ctx, latest); err != nil {
			s.logger.Warn("write analysis cache failed", "error", err)
		}
	}
	return latest, nil
}

// AnalyzeFolder parses every supported file in dir and analyzes the ones
// that parse, without storing documents or the result.
func (s *AnalysisService) AnalyzeFolder(ctx context.Context, dir string) (*FolderAnalysisOutcome, error) {
	if err := requireDirectory(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents folder failed: %w", err)
	}
	files, err := scanner.ListSupported(dir)
	if err != nil {
		return nil, err
	}

	out := &FolderAnalysisOutcome{TotalFilesFound: len(entries), ValidFiles: len(files)}
	inputs := make([]analysis.Input, 0, len(files))
	for _, f := range files {
		res, err := s.parser.Parse(ctx, f.FullPath, parser.MimeAny)
		if err != nil {
			s.logger.Warn("folder analysis parse failed", "file", f.Filename, "error", err)
			out.FailedDocuments++
			continue
		}
		inputs = append(inputs, analysis.Input{Filename: f.Filename, Content: res.Content})
	}
	out.DocumentsProcessed = len(inputs)

	result, err := s.engine.Analyze(context.WithoutCancel(ctx), inputs, s.progress)
	if err != nil {
		return nil, err
	}
	out.Success = true
	out.Results = result
	out.Message = fmt.Sprintf("Comprehensive analysis completed: %d documents processed out of %d valid files",
		out.DocumentsProcessed, out.ValidFiles)
	return out, nil
}

func (s *AnalysisService) analyzeAndStore(ctx context.Context, docs []model.Document) (*AnalysisOutcome, error) {
	inputs := make([]analysis.Input, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		inputs[i] = analysis.Input{Filename: d.OriginalName, Content: d.Text()}
		ids[i] = d.ID
	}

	// Analysis is not cancellable: a client that goes away mid-run still
	// gets its result stored.
	result, err := s.engine.Analyze(context.WithoutCancel(ctx), inputs, s.progress)
	if err != nil {
		return nil, err
	}

	record := &model.ClaimsAnalysis{
		DocumentIDs:        ids,
		CurrentClaims:      result.CurrentClaims,
		EnhancedClaims:     result.EnhancedClaims,
		Inconsistencies:    result.Inconsistencies,
		Recommendations:    result.Recommendations,
		TotalCurrentValue:  result.TotalCurrentValue,
		TotalEnhancedValue: result.TotalEnhancedValue,
	}
	if err := s.analysisRepo.Create(record); err != nil {
		return nil, err
	}
	s.afterCreate(ctx, record)
	return &AnalysisOutcome{Analysis: record, Results: result}, nil
}

// afterCreate writes the new analysis through to the cache and announces it.
// Failures here never fail the request.
func (s *AnalysisService) afterCreate(ctx context.Context, record *model.ClaimsAnalysis) {
	ctx = context.WithoutCancel(ctx)
	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, record); err != nil {
			s.logger.Warn("write analysis cache failed", "analysis_id", record.ID, "error", err)
		}
	}
	if s.publisher == nil {
		return
	}
	event := model.AnalysisCompletedEvent{
		AnalysisID:        record.ID,
		DocumentIDs:       record.DocumentIDs,
		TotalCurrentValue: record.TotalCurrentValue,
		CreatedAt:         record.CreatedAt,
	}
	if err := s.publisher.PublishCompleted(ctx, event); err != nil {
		s.logger.Warn("publish analysis event failed", "analysis_id", record.ID, "error", err)
	}
}
