package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/models"
	"github.com/portfolio/backend/internal/storage"
)

const uploadPrefix = "uploads/"

type UploadServiceOptions struct {
	// Storage is nil when credentials are absent; StorageErr then says why.
	Storage    *storage.Client
	StorageErr error
	// Endpoint and Bucket derive read URLs at confirmation without
	// needing credentials.
	Endpoint string
	Bucket   string
	Store    ImageStore
	TTL      time.Duration
	Now      func() time.Time
}

// UploadService issues write authorizations and records finished uploads.
// The two steps are independent; nothing ties an authorization to its
// confirmation.
type UploadService struct {
	storage    *storage.Client
	storageErr error
	endpoint   string
	bucket     string
	store      ImageStore
	ttl        time.Duration
	keys       *keyStamper
}

func NewUploadService(opts UploadServiceOptions) *UploadService {
	if opts.TTL <= 0 {
		opts.TTL = storage.DefaultUploadTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Storage == nil && opts.StorageErr == nil {
		opts.StorageErr = apperrors.Configuration("R2 config missing")
	}
	return &UploadService{
		storage:    opts.Storage,
		storageErr: opts.StorageErr,
		endpoint:   opts.Endpoint,
		bucket:     opts.Bucket,
		store:      opts.Store,
		ttl:        opts.TTL,
		keys:       &keyStamper{now: opts.Now},
	}
}

// CreateUploadTarget authorizes one PUT of a fresh key under uploads/.
func (s *UploadService) CreateUploadTarget(ctx context.Context, req models.UploadTargetRequest) (*models.UploadTarget, error) {
	if req.Filename == "" {
		return nil, apperrors.BadRequest("missing filename")
	}
	if s.storage == nil {
		return nil, s.storageErr
	}

	key := s.keys.Key(req.Filename)
	url, err := s.storage.PresignPut(ctx, key, req.ContentType, s.ttl)
	if err != nil {
		logger.WithUpload(key, req.Filename).WithError(err).Error("Failed to create presigned URL")
		return nil, err
	}

	logger.WithUpload(key, req.Filename).Info("Upload authorized")
	return &models.UploadTarget{
		URL:       url,
		Key:       key,
		PublicURL: s.storage.PublicURL(key),
	}, nil
}

// keyStamper names upload keys uploads/<ms>-<filename>. The millisecond is
// bumped past the last one issued so two uploads never share a key.
type keyStamper struct {
	now  func() time.Time
	last atomic.Int64
}

func (k *keyStamper) Key(filename string) string {
	return fmt.Sprintf("%s%d-%s", uploadPrefix, k.next(), filename)
}

func (k *keyStamper) next() int64 {
	ms := k.now().UnixMilli()
	for {
		last := k.last.Load()
		next := ms
		if next <= last {
			next = last + 1
		}
		if k.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Confirm inserts the metadata row for an uploaded object. The row's url is
// the client-supplied public URL, or the one derived from the key.
func (s *UploadService) Confirm(ctx context.Context, req models.ConfirmUploadRequest) (*models.Image, error) {
	if req.Key == "" || req.Filename == "" {
		return nil, apperrors.BadRequest("missing key or filename")
	}

	url := req.PublicURL
	if url == "" {
		url = storage.PublicURLForKey(s.endpoint, s.bucket, req.Key)
	}

	image := &models.Image{
		Filename:   req.Filename,
		URL:        url,
		Size:       req.Size,
		Mime:       req.Mime,
		SourcePath: req.SourcePath,
	}
	if image.Size != nil && *image.Size == 0 {
		image.Size = nil
	}
	if image.Mime != nil && *image.Mime == "" {
		image.Mime = nil
	}
	if image.SourcePath != nil && *image.SourcePath == "" {
		image.SourcePath = nil
	}

	row, err := s.store.Insert(ctx, image)
	if err != nil {
		return nil, err
	}
	logger.WithUpload(req.Key, req.Filename).Info("Upload confirmed")
	return row, nil
}

// Lookup finds a row by filename, or by storage key when no filename is
// given. A nil row means no match.
func (s *UploadService) Lookup(ctx context.Context, filename, key string) (*models.Image, error) {
	switch {
	case filename != "":
		return s.store.FindByFilename(ctx, filename)
	case key != "":
		return s.store.FindByURLSuffix(ctx, key)
	default:
		return nil, apperrors.BadRequest("missing filename or key")
	}
}
