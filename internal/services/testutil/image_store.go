// Package testutil provides test doubles for the services package.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/models"
)

// MemoryImageStore is a thread-safe in-memory image table.
//
// Usage:
//
//	store := &testutil.MemoryImageStore{}
//	store.Seed(models.Image{Filename: "hero.png", URL: "https://cdn/assets/hero.png"})
//
//	// Simulate a database outage
//	store := &testutil.MemoryImageStore{Err: errors.New("connection refused")}
type MemoryImageStore struct {
	mu     sync.Mutex
	images []models.Image
	// Err, when set, fails every call with a StorageError.
	Err error
	// Block, when set, is received from before each lookup returns.
	Block chan struct{}

	filenameCalls int
	suffixCalls   int
}

// Seed appends rows as-is, filling in id and timestamp when absent.
func (m *MemoryImageStore) Seed(images ...models.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range images {
		if img.ID == uuid.Nil {
			img.ID = uuid.New()
		}
		if img.UploadedAt.IsZero() {
			img.UploadedAt = time.Now().UTC()
		}
		m.images = append(m.images, img)
	}
}

func (m *MemoryImageStore) Insert(_ context.Context, image *models.Image) (*models.Image, error) {
	if image == nil || image.Filename == "" || image.URL == "" {
		return nil, apperrors.BadRequest("filename and url are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, apperrors.Storage(m.Err)
	}
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	if image.UploadedAt.IsZero() {
		image.UploadedAt = time.Now().UTC()
	}
	m.images = append(m.images, *image)
	return image, nil
}

func (m *MemoryImageStore) FindByFilename(_ context.Context, filename string) (*models.Image, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filenameCalls++
	return m.find(func(img models.Image) bool { return img.Filename == filename })
}

func (m *MemoryImageStore) FindByURLSuffix(_ context.Context, key string) (*models.Image, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suffixCalls++
	return m.find(func(img models.Image) bool { return strings.HasSuffix(img.URL, "/"+key) })
}

func (m *MemoryImageStore) Recent(_ context.Context, limit int) ([]models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, apperrors.Storage(m.Err)
	}
	out := make([]models.Image, len(m.images))
	copy(out, m.images)
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FilenameCalls returns how many FindByFilename queries were issued.
func (m *MemoryImageStore) FilenameCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filenameCalls
}

func (m *MemoryImageStore) SuffixCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suffixCalls
}

// All returns a copy of every stored row in insertion order.
func (m *MemoryImageStore) All() []models.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Image, len(m.images))
	copy(out, m.images)
	return out
}

func (m *MemoryImageStore) wait() {
	if m.Block != nil {
		<-m.Block
	}
}

func (m *MemoryImageStore) find(match func(models.Image) bool) (*models.Image, error) {
	if m.Err != nil {
		return nil, apperrors.Storage(m.Err)
	}
	for _, img := range m.images {
		if match(img) {
			found := img
			return &found, nil
		}
	}
	return nil, nil
}
