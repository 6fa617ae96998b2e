package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"claim-evaluator/internal/model"
)

type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(analysis *model.ClaimsAnalysis) error {
	if err := r.db.Create(analysis).Error; err != nil {
		return fmt.Errorf("create claims analysis failed: %w", err)
	}
	return nil
}

// Latest returns the most recently created analysis, or nil when none exist.
func (r *AnalysisRepository) Latest() (*model.ClaimsAnalysis, error) {
	var analysis model.ClaimsAnalysis
	if err := r.db.Order("created_at DESC, id DESC").First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest claims analysis failed: %w", err)
	}
	return &analysis, nil
}

func (r *AnalysisRepository) GetByID(id string) (*model.ClaimsAnalysis, error) {
	var analysis model.ClaimsAnalysis
	if err := r.db.Where("id = ?", id).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get claims analysis failed: %w", err)
	}
	return &analysis, nil
}
