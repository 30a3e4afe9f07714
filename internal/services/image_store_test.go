package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/models"
)

func TestGormImageStoreWithoutDatabase(t *testing.T) {
	store := NewGormImageStore(nil)
	ctx := context.Background()

	_, err := store.Insert(ctx, &models.Image{Filename: "a.png"})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))

	_, err = store.Insert(ctx, &models.Image{Filename: "a.png", URL: "https://x/a.png"})
	var storageErr *apperrors.StorageError
	assert.ErrorAs(t, err, &storageErr)

	_, err = store.FindByFilename(ctx, "a.png")
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(err))

	_, err = store.Recent(ctx, 10)
	assert.ErrorAs(t, err, &storageErr)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_a\\b.png`, escapeLike(`100%_a\b.png`))
	assert.Equal(t, "abc.png", escapeLike("abc.png"))
}
