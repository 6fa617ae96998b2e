package repository

import (
	"fmt"

	"gorm.io/gorm"

	"claim-evaluator/internal/model"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Document{}, &model.ClaimsAnalysis{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
