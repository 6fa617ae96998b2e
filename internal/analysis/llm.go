package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"claim-evaluator/internal/ai"
	"claim-evaluator/internal/model"
)

// Completer is the slice of the chat client the LLM strategy needs.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage, opts ...ai.CompletionOption) (string, error)
}

const (
	llmDocumentLimit = 12000
	llmSystemPrompt  = `You are a construction claims consultant reviewing claim documents under Indian contract law.
Return one JSON object with the keys currentClaims, enhancedClaims, inconsistencies and recommendations.
currentClaims and enhancedClaims items: {"id","category","description","amount","status","annexure","legalBasis","methodology"}; amount is a number in rupees; status is one of complete, review, incomplete, missing, new.
inconsistencies items: {"id","type","severity","description","location","suggestion"}; type is one of timeline, missing_data, unclear_reference, calculation_error; severity is one of high, medium, low.
recommendations items: {"id","type","priority","title","description","potentialValue","evidence","legalBasis","implementation"}; type is one of new_claim, enhancement, evidence, legal_language; priority is one of critical, high, medium, low.
Only report claims that are present in the documents as currentClaims.`
)

// LLMStrategy asks an OpenAI-compatible model for the claims result.
type LLMStrategy struct {
	client Completer
}

func NewLLMStrategy(client Completer) *LLMStrategy {
	return &LLMStrategy{client: client}
}

func (*LLMStrategy) Name() string { return "llm" }

func (s *LLMStrategy) Analyze(ctx context.Context, docs []Input, report func(ProgressEvent)) (*model.AnalysisResult, error) {
	var prompt strings.Builder
	for i, doc := range docs {
		report(ProgressEvent{
			Stage:              StageExtracting,
			Progress:           5 + 15*i/len(docs),
			Message:            fmt.Sprintf("Preparing %s", doc.Filename),
			CurrentDocument:    doc.Filename,
			ProcessedDocuments: i,
		})
		fmt.Fprintf(&prompt, "=== Document %d: %s ===\n%s\n\n", i+1, doc.Filename, truncate(doc.Content, llmDocumentLimit))
	}

	report(ProgressEvent{Stage: StageExtracting, Progress: 25, Message: "Waiting for model response", ProcessedDocuments: len(docs)})
	raw, err := s.client.Complete(ctx, []ai.ChatMessage{
		{Role: "system", Content: llmSystemPrompt},
		{Role: "user", Content: prompt.String()},
	}, ai.WithJSONResponse(), ai.WithTemperature(0))
	if err != nil {
		return nil, err
	}

	report(ProgressEvent{Stage: StageValidating, Progress: 85, Message: "Validating model output", ProcessedDocuments: len(docs)})
	result, err := decodeLLMResult(raw)
	if err != nil {
		return nil, err
	}
	if result.Metadata == nil {
		result.Metadata = &model.AnalysisMetadata{}
	}
	result.Metadata.Methodology = "LLM-assisted claims review"
	return result, nil
}

func decodeLLMResult(raw string) (*model.AnalysisResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	if start, end := strings.IndexByte(raw, '{'), strings.LastIndexByte(raw, '}'); start >= 0 && end > start {
		raw = raw[start : end+1]
	} else {
		return nil, errors.New("model response contains no JSON object")
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decode model response failed: %w", err)
	}
	for i := range result.CurrentClaims {
		c := &result.CurrentClaims[i]
		if c.Amount < 0 {
			return nil, fmt.Errorf("claim %q has a negative amount", c.ID)
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("CLM-%03d", i+1)
		}
	}
	for i := range result.Inconsistencies {
		if result.Inconsistencies[i].ID == "" {
			result.Inconsistencies[i].ID = fmt.Sprintf("INC-%03d", i+1)
		}
	}
	for i := range result.Recommendations {
		if result.Recommendations[i].ID == "" {
			result.Recommendations[i].ID = fmt.Sprintf("REC-%03d", i+1)
		}
	}
	return &result, nil
}
