package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ParseStatus string

const (
	ParseStatusPending ParseStatus = "pending"
	ParseStatusSuccess ParseStatus = "success"
	ParseStatusFailed  ParseStatus = "failed"
)

// Document is an uploaded or batch-loaded file. Content and ParseStatus are
// written exactly once, when parsing finishes.
type Document struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	Filename     string      `gorm:"size:255;not null" json:"filename"`
	OriginalName string      `gorm:"size:512;not null" json:"originalName"`
	Mimetype     string      `gorm:"size:255;not null" json:"mimetype"`
	Size         int64       `gorm:"not null" json:"size"`
	UploadedAt   time.Time   `gorm:"not null;index" json:"uploadedAt"`
	Content      *string     `gorm:"type:longtext" json:"content"`
	ParseStatus  ParseStatus `gorm:"size:16;not null;default:pending;index" json:"parseStatus"`
	ParseError   *string     `gorm:"type:text" json:"parseError"`
}

// Parsed reports whether the document finished parsing with usable text.
func (d *Document) Parsed() bool {
	return d.ParseStatus == ParseStatusSuccess && d.Content != nil && *d.Content != ""
}

// Text returns the parsed content, or "" when there is none.
func (d *Document) Text() string {
	if d.Content == nil {
		return ""
	}
	return *d.Content
}

// BeforeCreate assigns a time-ordered id and the pending state.
func (d *Document) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		d.ID = id.String()
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	if d.ParseStatus == "" {
		d.ParseStatus = ParseStatusPending
	}
	return nil
}
