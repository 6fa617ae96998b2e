package model

import "strings"

type ClaimStatus string

const (
	ClaimStatusComplete   ClaimStatus = "complete"
	ClaimStatusReview     ClaimStatus = "review"
	ClaimStatusIncomplete ClaimStatus = "incomplete"
	ClaimStatusMissing    ClaimStatus = "missing"
	ClaimStatusNew        ClaimStatus = "new"
)

type ClaimItem struct {
	ID          string      `json:"id"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Amount      float64     `json:"amount"`
	Status      ClaimStatus `json:"status"`
	Annexure    string      `json:"annexure,omitempty"`
	Evidence    []string    `json:"evidence,omitempty"`
	LegalBasis  string      `json:"legalBasis,omitempty"`
	Methodology string      `json:"methodology,omitempty"`
}

type InconsistencyType string

const (
	InconsistencyTimeline         InconsistencyType = "timeline"
	InconsistencyMissingData      InconsistencyType = "missing_data"
	InconsistencyUnclearReference InconsistencyType = "unclear_reference"
	InconsistencyCalculationError InconsistencyType = "calculation_error"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type Inconsistency struct {
	ID          string            `json:"id"`
	Type        InconsistencyType `json:"type"`
	Severity    Severity          `json:"severity"`
	Description string            `json:"description"`
	Location    string            `json:"location"`
	Suggestion  string            `json:"suggestion"`
}

type RecommendationType string

const (
	RecommendationNewClaim      RecommendationType = "new_claim"
	RecommendationEnhancement   RecommendationType = "enhancement"
	RecommendationEvidence      RecommendationType = "evidence"
	RecommendationLegalLanguage RecommendationType = "legal_language"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

type Recommendation struct {
	ID             string             `json:"id"`
	Type           RecommendationType `json:"type"`
	Priority       Priority           `json:"priority"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	PotentialValue *float64           `json:"potentialValue,omitempty"`
	Evidence       []string           `json:"evidence"`
	LegalBasis     string             `json:"legalBasis"`
	Implementation string             `json:"implementation"`
}

type AnalysisMetadata struct {
	GeneratedAt    string `json:"generatedAt"`
	Methodology    string `json:"methodology,omitempty"`
	ProjectName    string `json:"projectName,omitempty"`
	ContractNumber string `json:"contractNumber,omitempty"`
	Strategy       string `json:"strategy,omitempty"`
	DocumentCount  int    `json:"documentCount"`
}

// AnalysisResult is what one engine run produces. TotalCurrentValue always
// equals the sum of CurrentClaims amounts.
type AnalysisResult struct {
	CurrentClaims      []ClaimItem       `json:"currentClaims"`
	EnhancedClaims     []ClaimItem       `json:"enhancedClaims,omitempty"`
	Inconsistencies    []Inconsistency   `json:"inconsistencies"`
	Recommendations    []Recommendation  `json:"recommendations"`
	TotalCurrentValue  float64           `json:"totalCurrentValue"`
	TotalEnhancedValue *float64          `json:"totalEnhancedValue,omitempty"`
	Metadata           *AnalysisMetadata `json:"metadata,omitempty"`
}

func SumClaims(items []ClaimItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount
	}
	return total
}

// The Normalize functions map free-form values onto the known constants,
// ignoring case and surrounding space. Unknown values become review, medium,
// unclear_reference or enhancement respectively.

func NormalizeClaimStatus(s ClaimStatus) ClaimStatus {
	switch v := ClaimStatus(normalizeEnum(string(s))); v {
	case ClaimStatusComplete, ClaimStatusReview, ClaimStatusIncomplete, ClaimStatusMissing, ClaimStatusNew:
		return v
	}
	return ClaimStatusReview
}

func NormalizeInconsistencyType(t InconsistencyType) InconsistencyType {
	switch v := InconsistencyType(normalizeEnum(string(t))); v {
	case InconsistencyTimeline, InconsistencyMissingData, InconsistencyUnclearReference, InconsistencyCalculationError:
		return v
	}
	return InconsistencyUnclearReference
}

func NormalizeSeverity(s Severity) Severity {
	switch v := Severity(normalizeEnum(string(s))); v {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return v
	}
	return SeverityMedium
}

func NormalizeRecommendationType(t RecommendationType) RecommendationType {
	switch v := RecommendationType(normalizeEnum(string(t))); v {
	case RecommendationNewClaim, RecommendationEnhancement, RecommendationEvidence, RecommendationLegalLanguage:
		return v
	}
	return RecommendationEnhancement
}

func NormalizePriority(p Priority) Priority {
	switch v := Priority(normalizeEnum(string(p))); v {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return v
	}
	return PriorityMedium
}

func normalizeEnum(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
