package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"claim-evaluator/internal/model"
)

// ErrDocumentNotPending is returned when a document's content was already
// recorded. Parse results are written once.
var ErrDocumentNotPending = errors.New("document is not pending")

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores a new pending document. Any content on doc is ignored.
func (r *DocumentRepository) Create(doc *model.Document) error {
	doc.Content = nil
	doc.ParseError = nil
	doc.ParseStatus = model.ParseStatusPending
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// UpdateContent records the parse outcome of a pending document.
func (r *DocumentRepository) UpdateContent(id string, content *string, status model.ParseStatus, parseErr *string) error {
	res := r.db.Model(&model.Document{}).
		Where("id = ? AND parse_status = ?", id, model.ParseStatusPending).
		Updates(map[string]any{
			"content":      content,
			"parse_status": status,
			"parse_error":  parseErr,
		})
	if res.Error != nil {
		return fmt.Errorf("update document content failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update document %s: %w", id, ErrDocumentNotPending)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) List() ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Order("uploaded_at ASC, id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

// ListByIDs returns the documents that exist among ids. Unknown ids are
// skipped.
func (r *DocumentRepository) ListByIDs(ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return []model.Document{}, nil
	}
	var list []model.Document
	if err := r.db.Where("id IN ?", ids).Order("uploaded_at ASC, id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents by ids failed: %w", err)
	}
	return list, nil
}

// ListParsed returns documents that parsed successfully with non-empty text.
func (r *DocumentRepository) ListParsed() ([]model.Document, error) {
	var list []model.Document
	err := r.db.
		Where("parse_status = ? AND content IS NOT NULL AND content <> ''", model.ParseStatusSuccess).
		Order("uploaded_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list parsed documents failed: %w", err)
	}
	return list, nil
}
