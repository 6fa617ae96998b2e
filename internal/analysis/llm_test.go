package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"claim-evaluator/internal/ai"
	"claim-evaluator/internal/model"
)

type fakeCompleter struct {
	reply    string
	err      error
	messages []ai.ChatMessage
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.ChatMessage, opts ...ai.CompletionOption) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

func TestLLMStrategy(t *testing.T) {
	client := &fakeCompleter{reply: "```json\n" + `{
		"currentClaims": [
			{"category": "Extension of Time", "description": "EOT", "amount": 500000, "status": "complete"},
			{"id": "x2", "category": "Escalation", "description": "PV", "amount": 250000}
		],
		"inconsistencies": [{"type": "timeline", "severity": "high", "description": "d", "location": "l", "suggestion": "s"}],
		"recommendations": []
	}` + "\n```"}

	res, err := NewEngine(NewLLMStrategy(client), nil).Analyze(context.Background(),
		[]Input{{Filename: "claim.pdf", Content: "Claim text"}}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.TotalCurrentValue != 750000 {
		t.Fatalf("totalCurrentValue = %v", res.TotalCurrentValue)
	}
	if res.CurrentClaims[0].ID != "CLM-001" || res.CurrentClaims[1].Status != "review" {
		t.Fatalf("claims = %+v", res.CurrentClaims)
	}
	if res.Inconsistencies[0].ID != "INC-001" {
		t.Fatalf("inconsistency id = %q", res.Inconsistencies[0].ID)
	}
	if res.Metadata.Strategy != "llm" {
		t.Fatalf("strategy = %q", res.Metadata.Strategy)
	}
	if len(client.messages) != 2 || !strings.Contains(client.messages[1].Content, "claim.pdf") {
		t.Fatalf("prompt = %+v", client.messages)
	}
}

func TestLLMStrategyFailures(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeCompleter
	}{
		{"transport", &fakeCompleter{err: errors.New("connection refused")}},
		{"not json", &fakeCompleter{reply: "I cannot help with that."}},
		{"negative amount", &fakeCompleter{reply: `{"currentClaims":[{"amount":-5}]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(NewLLMStrategy(tt.client), nil).Analyze(context.Background(),
				[]Input{{Filename: "a.txt", Content: "x"}}, nil)
			var ae *AnalysisError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *AnalysisError, got %v", err)
			}
		})
	}
}

func TestLLMStrategyNormalizesEnums(t *testing.T) {
	client := &fakeCompleter{reply: `{
		"currentClaims": [
			{"category": "Variations", "description": "VO", "amount": 100, "status": "approved"},
			{"category": "Delay", "description": "EOT", "amount": 200, "status": " Complete "}
		],
		"inconsistencies": [
			{"type": "typo", "severity": "catastrophic", "description": "d"},
			{"type": "Missing Data", "severity": "LOW", "description": "d"}
		],
		"recommendations": [
			{"type": "rewrite", "priority": "urgent", "title": "t"},
			{"type": "new_claim", "priority": "Critical", "title": "t"}
		]
	}`}

	res, err := NewEngine(NewLLMStrategy(client), nil).Analyze(context.Background(),
		[]Input{{Filename: "claim.pdf", Content: "Claim text"}}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.CurrentClaims[0].Status != model.ClaimStatusReview || res.CurrentClaims[1].Status != model.ClaimStatusComplete {
		t.Fatalf("statuses = %q, %q", res.CurrentClaims[0].Status, res.CurrentClaims[1].Status)
	}
	inc := res.Inconsistencies
	if inc[0].Type != model.InconsistencyUnclearReference || inc[0].Severity != model.SeverityMedium {
		t.Fatalf("unknown inconsistency = %+v", inc[0])
	}
	if inc[1].Type != model.InconsistencyMissingData || inc[1].Severity != model.SeverityLow {
		t.Fatalf("known inconsistency = %+v", inc[1])
	}
	rec := res.Recommendations
	if rec[0].Type != model.RecommendationEnhancement || rec[0].Priority != model.PriorityMedium {
		t.Fatalf("unknown recommendation = %+v", rec[0])
	}
	if rec[1].Type != model.RecommendationNewClaim || rec[1].Priority != model.PriorityCritical {
		t.Fatalf("known recommendation = %+v", rec[1])
	}
}
