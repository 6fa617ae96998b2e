// Package analysis turns parsed claim documents into a structured claims
// result. The Engine owns the result invariants; a Strategy does the actual
// extraction.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"claim-evaluator/internal/model"
)

// Input is one parsed document handed to the engine.
type Input struct {
	Filename string
	Content  string
}

// Strategy extracts claims from documents. Implementations report progress
// through report and may call it any number of times.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, docs []Input, report func(ProgressEvent)) (*model.AnalysisResult, error)
}

// AnalysisError means no result could be produced. Partial results are never
// returned alongside it.
type AnalysisError struct {
	Strategy string
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis (%s) failed: %v", e.Strategy, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

type Engine struct {
	strategy Strategy
	logger   *slog.Logger
	now      func() time.Time
}

func NewEngine(strategy Strategy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{strategy: strategy, logger: logger, now: time.Now}
}

func (e *Engine) StrategyName() string {
	return e.strategy.Name()
}

// Analyze runs the strategy over docs. sink may be nil.
func (e *Engine) Analyze(ctx context.Context, docs []Input, sink ProgressSink) (result *model.AnalysisResult, err error) {
	tracker := newTracker(sink, len(docs), e.logger)

	if len(docs) == 0 {
		tracker.report(ProgressEvent{Stage: StageComplete, Progress: 100, Message: "No documents to analyze"})
		return e.finalize(&model.AnalysisResult{}, 0), nil
	}

	start := e.now()
	e.logger.Info("analysis started", "strategy", e.strategy.Name(), "documents", len(docs))
	tracker.report(ProgressEvent{Stage: StageStarting, Progress: 0, Message: fmt.Sprintf("Starting analysis of %d documents", len(docs))})

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &AnalysisError{Strategy: e.strategy.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			e.logger.Error("analysis failed", "strategy", e.strategy.Name(), "documents", len(docs), "error", err)
		}
	}()

	raw, err := e.strategy.Analyze(ctx, docs, tracker.report)
	if err != nil {
		return nil, &AnalysisError{Strategy: e.strategy.Name(), Err: err}
	}
	if raw == nil {
		return nil, &AnalysisError{Strategy: e.strategy.Name(), Err: fmt.Errorf("strategy returned no result")}
	}

	result = e.finalize(raw, len(docs))
	tracker.report(ProgressEvent{
		Stage:              StageComplete,
		Progress:           100,
		Message:            fmt.Sprintf("Analysis complete: %d claims, %d inconsistencies", len(result.CurrentClaims), len(result.Inconsistencies)),
		ProcessedDocuments: len(docs),
	})
	e.logger.Info("analysis finished",
		"strategy", e.strategy.Name(),
		"documents", len(docs),
		"claims", len(result.CurrentClaims),
		"total_current_value", result.TotalCurrentValue,
		"duration", e.now().Sub(start),
	)
	return result, nil
}

// finalize normalizes empty lists and enum values, and recomputes the totals
// from the items.
func (e *Engine) finalize(r *model.AnalysisResult, docCount int) *model.AnalysisResult {
	if r.CurrentClaims == nil {
		r.CurrentClaims = []model.ClaimItem{}
	}
	if r.Inconsistencies == nil {
		r.Inconsistencies = []model.Inconsistency{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []model.Recommendation{}
	}
	for i := range r.CurrentClaims {
		r.CurrentClaims[i].Status = model.NormalizeClaimStatus(r.CurrentClaims[i].Status)
	}
	for i := range r.EnhancedClaims {
		r.EnhancedClaims[i].Status = model.NormalizeClaimStatus(r.EnhancedClaims[i].Status)
	}
	for i := range r.Inconsistencies {
		inc := &r.Inconsistencies[i]
		inc.Type = model.NormalizeInconsistencyType(inc.Type)
		inc.Severity = model.NormalizeSeverity(inc.Severity)
	}
	for i := range r.Recommendations {
		rec := &r.Recommendations[i]
		rec.Type = model.NormalizeRecommendationType(rec.Type)
		rec.Priority = model.NormalizePriority(rec.Priority)
		if rec.Evidence == nil {
			rec.Evidence = []string{}
		}
	}

	r.TotalCurrentValue = model.SumClaims(r.CurrentClaims)
	if len(r.EnhancedClaims) > 0 {
		total := model.SumClaims(r.EnhancedClaims)
		r.TotalEnhancedValue = &total
	} else {
		r.EnhancedClaims = nil
		r.TotalEnhancedValue = nil
	}

	if r.Metadata == nil {
		r.Metadata = &model.AnalysisMetadata{}
	}
	r.Metadata.GeneratedAt = e.now().UTC().Format(time.RFC3339)
	r.Metadata.Strategy = e.strategy.Name()
	r.Metadata.DocumentCount = docCount
	return r
}
