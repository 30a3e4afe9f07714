package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image is one uploaded object's metadata. Filenames are not unique.
type Image struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Filename   string    `json:"filename" gorm:"type:text;not null"`
	URL        string    `json:"url" gorm:"type:text;not null"`
	Size       *int64    `json:"size"`
	Mime       *string   `json:"mime" gorm:"type:text"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"type:timestamptz"`
	SourcePath *string   `json:"source_path" gorm:"type:text"`
}

func (Image) TableName() string {
	return "images"
}

// BeforeCreate fills the generated columns.
func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.UploadedAt.IsZero() {
		i.UploadedAt = time.Now().UTC()
	}
	return nil
}
