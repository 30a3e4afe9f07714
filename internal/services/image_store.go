package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/models"
)

var errDatabaseUnavailable = errors.New("database is not configured; set DATABASE_URL")

// ImageStore is the metadata table mapping filenames to stored objects.
// Rows are only ever inserted.
type ImageStore interface {
	Insert(ctx context.Context, image *models.Image) (*models.Image, error)
	// FindByFilename returns some row with that filename, or nil.
	FindByFilename(ctx context.Context, filename string) (*models.Image, error)
	// FindByURLSuffix returns some row whose url ends with "/"+key, or nil.
	FindByURLSuffix(ctx context.Context, key string) (*models.Image, error)
	Recent(ctx context.Context, limit int) ([]models.Image, error)
}

type GormImageStore struct {
	db *gorm.DB
}

// NewGormImageStore wraps conn. A nil conn gives a store whose every call
// fails with a StorageError.
func NewGormImageStore(conn *gorm.DB) *GormImageStore {
	return &GormImageStore{db: conn}
}

func (s *GormImageStore) Insert(ctx context.Context, image *models.Image) (*models.Image, error) {
	if image == nil || image.Filename == "" || image.URL == "" {
		return nil, apperrors.BadRequest("filename and url are required")
	}
	if s.db == nil {
		return nil, apperrors.Storage(errDatabaseUnavailable)
	}

	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		logger.WithError(err, "image_store").Error("Failed to insert image")
		return nil, apperrors.Storage(err)
	}
	return image, nil
}

func (s *GormImageStore) FindByFilename(ctx context.Context, filename string) (*models.Image, error) {
	return s.first(ctx, "filename = ?", filename)
}

func (s *GormImageStore) FindByURLSuffix(ctx context.Context, key string) (*models.Image, error) {
	return s.first(ctx, `url LIKE ? ESCAPE '\'`, "%/"+escapeLike(key))
}

func (s *GormImageStore) Recent(ctx context.Context, limit int) ([]models.Image, error) {
	if s.db == nil {
		return nil, apperrors.Storage(errDatabaseUnavailable)
	}
	if limit <= 0 {
		limit = 200
	}
	var images []models.Image
	if err := s.db.WithContext(ctx).Order("uploaded_at DESC").Limit(limit).Find(&images).Error; err != nil {
		return nil, apperrors.Storage(err)
	}
	return images, nil
}

// first takes one matching row with no ordering guarantee.
func (s *GormImageStore) first(ctx context.Context, query string, args ...any) (*models.Image, error) {
	if s.db == nil {
		return nil, apperrors.Storage(errDatabaseUnavailable)
	}
	var image models.Image
	err := s.db.WithContext(ctx).Where(query, args...).Take(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return &image, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
