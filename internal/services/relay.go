package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/storage"
)

// hostNoisePattern strips a scheme and trailing slashes from the
// configured allow-list value.
var hostNoisePattern = regexp.MustCompile(`/+$|https?://`)

// RelayedBody is a streamed response body. Callers close Body.
type RelayedBody struct {
	Body        io.ReadCloser
	ContentType string
}

type RelayOptions struct {
	Storage    *storage.Client
	StorageErr error
	// AllowedHost is the raw configured storage endpoint or public URL.
	// Empty disables the allow-list.
	AllowedHost string
	HTTPClient  *http.Client
}

// Relay streams stored objects, by key through the storage client or by URL
// through a plain fetch.
type Relay struct {
	storage     *storage.Client
	storageErr  error
	allowedHost string
	client      *http.Client
}

func NewRelay(opts RelayOptions) *Relay {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Storage == nil && opts.StorageErr == nil {
		opts.StorageErr = apperrors.Configuration("R2 config missing")
	}
	return &Relay{
		storage:     opts.Storage,
		storageErr:  opts.StorageErr,
		allowedHost: opts.AllowedHost,
		client:      opts.HTTPClient,
	}
}

// StreamByKey fetches key with server-held credentials.
func (r *Relay) StreamByKey(ctx context.Context, key string) (*RelayedBody, error) {
	if key == "" {
		return nil, apperrors.BadRequest("missing key")
	}
	if r.storage == nil {
		return nil, r.storageErr
	}
	obj, err := r.storage.GetObject(ctx, key)
	if err != nil {
		logger.WithUpload(key, "").WithError(err).Warn("Stream by key failed")
		return nil, err
	}
	return &RelayedBody{Body: obj.Body, ContentType: obj.ContentType}, nil
}

// IsAllowedProxyTarget reports whether target passes the allow-list. The
// check is a substring match on the URL text, so an allowed host placed in
// the path or query of another origin also passes.
func IsAllowedProxyTarget(target, allowedHost string) bool {
	if allowedHost == "" {
		return true
	}
	host := hostNoisePattern.ReplaceAllString(allowedHost, "")
	return strings.Contains(target, host) || strings.Contains(target, allowedHost)
}

// ProxyURL fetches target and hands back its body. A non-success answer is
// an UpstreamError carrying the upstream status.
func (r *Relay) ProxyURL(ctx context.Context, target string) (*RelayedBody, error) {
	if target == "" {
		return nil, apperrors.BadRequest("missing url")
	}
	if !IsAllowedProxyTarget(target, r.allowedHost) {
		return nil, apperrors.Forbidden("url not allowed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperrors.BadRequest("invalid url: %v", err)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		observeUpstream("proxy", 0, time.Since(start))
		return nil, fmt.Errorf("proxy fetch failed: %w", err)
	}
	observeUpstream("proxy", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, apperrors.Upstream(resp.StatusCode, "upstream fetch failed", nil)
	}
	return &RelayedBody{Body: resp.Body, ContentType: resp.Header.Get("Content-Type")}, nil
}
