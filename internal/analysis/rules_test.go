package analysis

import (
	"context"
	"math"
	"testing"

	"claim-evaluator/internal/model"
)

func TestExtractAmounts(t *testing.T) {
	tests := []struct {
		in   string
		want []float64
	}{
		{"Claim of Rs. 12,50,000 towards idling", []float64{1250000}},
		{"INR 4.5 crore and ₹3 lakhs", []float64{45000000, 300000}},
		{"about 75 lakh", []float64{7500000}},
		{"Rs 2 cr. for overheads", []float64{20000000}},
		{"dated 12.03.2021 under clause 14.2, 300 days", nil},
		{"5 lack of records", nil},
	}
	for _, tt := range tests {
		got := ExtractAmounts(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("ExtractAmounts(%q) = %+v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if math.Abs(got[i].Value-tt.want[i]) > 1e-6 {
				t.Fatalf("ExtractAmounts(%q)[%d] = %v, want %v", tt.in, i, got[i].Value, tt.want[i])
			}
		}
	}
}

func TestFormatRupees(t *testing.T) {
	tests := map[float64]string{
		25000000: "Rs. 2.50 crore",
		150000:   "Rs. 1.50 lakh",
		9500:     "Rs. 9500",
	}
	for in, want := range tests {
		if got := FormatRupees(in); got != want {
			t.Fatalf("FormatRupees(%v) = %q, want %q", in, got, want)
		}
	}
}

const claimStatement = `Project: Widening of NH-44 Section
Contract No. NHAI/2019/044
Works commenced on 01.04.2019 as per Clause 12.
Scheduled completion 31.03.2018
Claim 1: Extension of Time compensation Rs. 50,00,000 as per Annexure A
Claim 2: Price escalation INR 1.2 crore
Idle machinery charges claimed, amount to be assessed
Total claim: Rs. 2,00,00,000`

func TestRuleStrategy(t *testing.T) {
	engine := NewEngine(NewRuleStrategy(), nil)
	res, err := engine.Analyze(context.Background(), []Input{
		{Filename: "claim_statement.txt", Content: claimStatement},
		{Filename: "Annexure-B.txt", Content: "Hindrance register extracts"},
	}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(res.CurrentClaims) != 3 {
		t.Fatalf("claims = %+v", res.CurrentClaims)
	}
	eot, esc, idle := res.CurrentClaims[0], res.CurrentClaims[1], res.CurrentClaims[2]
	if eot.Category != "Extension of Time" || eot.Amount != 5000000 || eot.Status != model.ClaimStatusComplete || eot.Annexure != "Annexure A" {
		t.Fatalf("eot claim = %+v", eot)
	}
	if esc.Category != "Price Escalation" || esc.Amount != 12000000 || esc.Status != model.ClaimStatusReview {
		t.Fatalf("escalation claim = %+v", esc)
	}
	if idle.Category != "Idle Machinery & Manpower" || idle.Amount != 0 || idle.Status != model.ClaimStatusIncomplete {
		t.Fatalf("idle claim = %+v", idle)
	}
	if res.TotalCurrentValue != 17000000 {
		t.Fatalf("totalCurrentValue = %v", res.TotalCurrentValue)
	}

	wantTypes := []model.InconsistencyType{
		model.InconsistencyMissingData,
		model.InconsistencyTimeline,
		model.InconsistencyCalculationError,
		model.InconsistencyUnclearReference,
	}
	if len(res.Inconsistencies) != len(wantTypes) {
		t.Fatalf("inconsistencies = %+v", res.Inconsistencies)
	}
	for i, want := range wantTypes {
		if res.Inconsistencies[i].Type != want {
			t.Fatalf("inconsistency %d type = %s, want %s", i, res.Inconsistencies[i].Type, want)
		}
	}

	counts := map[model.RecommendationType]int{}
	for _, rec := range res.Recommendations {
		counts[rec.Type]++
	}
	if counts[model.RecommendationEnhancement] != 1 || counts[model.RecommendationEvidence] != 1 ||
		counts[model.RecommendationNewClaim] != 4 || counts[model.RecommendationLegalLanguage] != 0 {
		t.Fatalf("recommendation counts = %v", counts)
	}

	if len(res.EnhancedClaims) != 7 {
		t.Fatalf("enhanced claims = %d", len(res.EnhancedClaims))
	}
	if res.TotalEnhancedValue == nil || *res.TotalEnhancedValue != 22270000 {
		t.Fatalf("totalEnhancedValue = %v", res.TotalEnhancedValue)
	}
	if res.Metadata.ProjectName != "Widening of NH-44 Section" || res.Metadata.ContractNumber != "NHAI/2019/044" {
		t.Fatalf("metadata = %+v", res.Metadata)
	}
}

func TestRuleStrategyIsDeterministic(t *testing.T) {
	docs := []Input{{Filename: "claim.txt", Content: claimStatement}}
	a, err := NewRuleStrategy().Analyze(context.Background(), docs, func(ProgressEvent) {})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRuleStrategy().Analyze(context.Background(), docs, func(ProgressEvent) {})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.CurrentClaims) != len(b.CurrentClaims) || len(a.Recommendations) != len(b.Recommendations) {
		t.Fatal("runs differ")
	}
	for i := range a.CurrentClaims {
		if a.CurrentClaims[i].ID != b.CurrentClaims[i].ID || a.CurrentClaims[i].Amount != b.CurrentClaims[i].Amount {
			t.Fatalf("claim %d differs: %+v vs %+v", i, a.CurrentClaims[i], b.CurrentClaims[i])
		}
	}
}

func TestRuleStrategyNoClaims(t *testing.T) {
	res, err := NewEngine(NewRuleStrategy(), nil).Analyze(context.Background(),
		[]Input{{Filename: "minutes.txt", Content: "Site meeting minutes. Attendance recorded."}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.CurrentClaims) != 0 || res.TotalCurrentValue != 0 || res.TotalEnhancedValue != nil {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestContainsWord(t *testing.T) {
	if !containsWord("claim for eot of 90 days", "eot") {
		t.Fatal("eot not found")
	}
	if containsWord("interest on delayed payment", "delay") {
		t.Fatal("delay matched inside delayed")
	}
}
