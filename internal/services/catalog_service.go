package services

import (
	"context"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/models"
	"github.com/portfolio/backend/internal/storage"
)

// CatalogService keeps the image table in step with the bucket: bulk
// registration of existing objects and upload of local directories.
type CatalogService struct {
	storage *storage.Client
	store   ImageStore
	keys    *keyStamper
}

type SyncReport struct {
	Listed   int
	Inserted []models.Image
	Skipped  int
	Failed   map[string]error
}

type UploadedFile struct {
	Path  string
	Image *models.Image
	Err   error
}

func NewCatalogService(client *storage.Client, store ImageStore) *CatalogService {
	return &CatalogService{
		storage: client,
		store:   store,
		keys:    &keyStamper{now: time.Now},
	}
}

// Sync registers every object not yet known by filename. Directory markers
// are ignored; a failure on one object does not stop the rest.
func (c *CatalogService) Sync(ctx context.Context) (*SyncReport, error) {
	objects, err := c.storage.ListAll(ctx, "")
	if err != nil {
		return nil, err
	}

	report := &SyncReport{Listed: len(objects), Failed: make(map[string]error)}
	for _, obj := range objects {
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			report.Skipped++
			continue
		}
		filename := KeyBasename(obj.Key)

		existing, err := c.store.FindByFilename(ctx, filename)
		if err != nil {
			report.Failed[obj.Key] = err
			continue
		}
		if existing != nil {
			report.Skipped++
			continue
		}

		image := &models.Image{
			Filename:   filename,
			URL:        c.storage.SyncURL(obj.Key),
			SourcePath: ptr(c.storage.SourcePath(obj.Key)),
		}
		if obj.Size > 0 {
			image.Size = ptr(obj.Size)
		}
		row, err := c.store.Insert(ctx, image)
		if err != nil {
			report.Failed[obj.Key] = err
			continue
		}
		logger.WithUpload(obj.Key, filename).Info("Registered stored object")
		report.Inserted = append(report.Inserted, *row)
	}
	return report, nil
}

// KeyBasename is the last path element of a percent-decoded key.
func KeyBasename(key string) string {
	if decoded, err := url.PathUnescape(key); err == nil {
		key = decoded
	}
	return path.Base(key)
}

// UploadDir uploads every regular file under dir and records each one.
// .DS_Store files are skipped.
func (c *CatalogService) UploadDir(ctx context.Context, dir string) ([]UploadedFile, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && d.Name() != ".DS_Store" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]UploadedFile, 0, len(files))
	for _, p := range files {
		image, err := c.UploadFile(ctx, p)
		results = append(results, UploadedFile{Path: p, Image: image, Err: err})
	}
	return results, nil
}

// UploadFile puts one local file under a fresh uploads/ key and inserts its
// row with the detected content type.
func (c *CatalogService) UploadFile(ctx context.Context, p string) (*models.Image, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(p)
	key := c.keys.Key(filename)
	contentType := DetectContentType(filename)

	if err := c.storage.PutObject(ctx, key, contentType, f, info.Size()); err != nil {
		logger.WithUpload(key, filename).WithError(err).Error("Upload failed")
		return nil, err
	}

	return c.store.Insert(ctx, &models.Image{
		Filename:   filename,
		URL:        c.storage.SyncURL(key),
		Size:       ptr(info.Size()),
		Mime:       ptr(contentType),
		SourcePath: ptr(p),
	})
}

// DetectContentType guesses from the extension, defaulting to
// application/octet-stream.
func DetectContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func ptr[T any](v T) *T {
	return &v
}
