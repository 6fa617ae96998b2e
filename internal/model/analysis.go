package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClaimsAnalysis is the persisted record of one analysis run.
type ClaimsAnalysis struct {
	ID                 string                              `gorm:"primaryKey;size:36" json:"id"`
	DocumentIDs        datatypes.JSONSlice[string]         `gorm:"not null" json:"documentIds"`
	CurrentClaims      datatypes.JSONSlice[ClaimItem]      `gorm:"not null" json:"currentClaims"`
	EnhancedClaims     datatypes.JSONSlice[ClaimItem]      `json:"enhancedClaims"`
	Inconsistencies    datatypes.JSONSlice[Inconsistency]  `gorm:"not null" json:"inconsistencies"`
	Recommendations    datatypes.JSONSlice[Recommendation] `json:"recommendations"`
	TotalCurrentValue  float64                             `gorm:"not null" json:"totalCurrentValue"`
	TotalEnhancedValue *float64                            `json:"totalEnhancedValue"`
	CreatedAt          time.Time                           `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time                           `json:"updatedAt"`
}

func (ClaimsAnalysis) TableName() string { return "claims_analysis" }

func (a *ClaimsAnalysis) BeforeCreate(*gorm.DB) error {
	if a.ID != "" {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	a.ID = id.String()
	return nil
}

// Result returns the analysis as an engine result shape.
func (a *ClaimsAnalysis) Result() *AnalysisResult {
	return &AnalysisResult{
		CurrentClaims:      a.CurrentClaims,
		EnhancedClaims:     a.EnhancedClaims,
		Inconsistencies:    a.Inconsistencies,
		Recommendations:    a.Recommendations,
		TotalCurrentValue:  a.TotalCurrentValue,
		TotalEnhancedValue: a.TotalEnhancedValue,
	}
}

// AnalysisCompletedEvent is published after an analysis is stored.
type AnalysisCompletedEvent struct {
	AnalysisID        string    `json:"analysisId"`
	DocumentIDs       []string  `json:"documentIds"`
	TotalCurrentValue float64   `json:"totalCurrentValue"`
	CreatedAt         time.Time `json:"createdAt"`
}
