package services

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/portfolio/backend/internal/logger"
)

const DefaultAssetMissTTL = 30 * time.Second

const (
	AssetSourceAbsolute = "absolute"
	AssetSourceLocal    = "local"
	AssetSourceRemote   = "remote"
)

var absoluteURLPattern = regexp.MustCompile(`(?i)^https?://`)

// Resolution is the outcome of one lookup. Found is false when remote
// resolution has no row for the name.
type Resolution struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Found  bool   `json:"found"`
}

type CacheState int

const (
	CacheUnknown CacheState = iota
	CacheHit
	CacheMiss
)

// AssetCache holds resolved URLs and time-bounded miss markers.
type AssetCache interface {
	Get(name string, now time.Time) (string, CacheState)
	SetURL(name, url string)
	SetMiss(name string, expires time.Time)
}

// MemoryAssetCache is a process-local AssetCache. Resolved URLs never
// expire; a miss marker is honored until its expiry.
type MemoryAssetCache struct {
	mu     sync.RWMutex
	values map[string]string
	misses map[string]time.Time
}

func NewMemoryAssetCache() *MemoryAssetCache {
	return &MemoryAssetCache{
		values: make(map[string]string),
		misses: make(map[string]time.Time),
	}
}

func (c *MemoryAssetCache) Get(name string, now time.Time) (string, CacheState) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if url, ok := c.values[name]; ok {
		return url, CacheHit
	}
	if expires, ok := c.misses[name]; ok && now.Before(expires) {
		return "", CacheMiss
	}
	return "", CacheUnknown
}

func (c *MemoryAssetCache) SetURL(name, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = url
	delete(c.misses, name)
}

func (c *MemoryAssetCache) SetMiss(name string, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses[name] = expires
	delete(c.values, name)
}

// NoopAssetCache remembers nothing; every remote lookup queries the store.
type NoopAssetCache struct{}

func (NoopAssetCache) Get(string, time.Time) (string, CacheState) { return "", CacheUnknown }
func (NoopAssetCache) SetURL(string, string)                      {}
func (NoopAssetCache) SetMiss(string, time.Time)                  {}

type AssetResolverOptions struct {
	// Remote enables lookups in the image store. Off, every name resolves
	// to a root-relative path.
	Remote  bool
	Store   ImageStore
	Cache   AssetCache
	MissTTL time.Duration
	Now     func() time.Time
}

type AssetResolver struct {
	remote  bool
	store   ImageStore
	cache   AssetCache
	missTTL time.Duration
	now     func() time.Time
	flights singleflight.Group
}

func NewAssetResolver(opts AssetResolverOptions) *AssetResolver {
	if opts.Cache == nil {
		opts.Cache = NewMemoryAssetCache()
	}
	if opts.MissTTL <= 0 {
		opts.MissTTL = DefaultAssetMissTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AssetResolver{
		remote:  opts.Remote && opts.Store != nil,
		store:   opts.Store,
		cache:   opts.Cache,
		missTTL: opts.MissTTL,
		now:     opts.Now,
	}
}

// Resolve turns a logical filename into a usable URL. Absolute URLs pass
// through untouched. Concurrent remote lookups of one name share a query.
func (r *AssetResolver) Resolve(ctx context.Context, name string) (Resolution, error) {
	if absoluteURLPattern.MatchString(name) {
		assetResolutions.WithLabelValues("absolute").Inc()
		return Resolution{URL: name, Source: AssetSourceAbsolute, Found: true}, nil
	}

	normalized := strings.TrimLeft(name, "/")
	if !r.remote {
		assetResolutions.WithLabelValues("local").Inc()
		return Resolution{URL: "/" + normalized, Source: AssetSourceLocal, Found: true}, nil
	}
	if normalized == "" {
		return Resolution{Source: AssetSourceRemote}, nil
	}

	if res, ok := r.cached(normalized); ok {
		return res, nil
	}

	v, err, _ := r.flights.Do(normalized, func() (interface{}, error) {
		// a flight that finished just before this one may have filled the cache
		if res, ok := r.cached(normalized); ok {
			return res, nil
		}
		return r.lookup(context.WithoutCancel(ctx), normalized)
	})
	res, _ := v.(Resolution)
	res.Source = AssetSourceRemote
	return res, err
}

func (r *AssetResolver) cached(name string) (Resolution, bool) {
	url, state := r.cache.Get(name, r.now())
	switch state {
	case CacheHit:
		assetResolutions.WithLabelValues("cache_hit").Inc()
		return Resolution{URL: url, Source: AssetSourceRemote, Found: true}, true
	case CacheMiss:
		assetResolutions.WithLabelValues("cache_miss").Inc()
		return Resolution{Source: AssetSourceRemote}, true
	default:
		return Resolution{}, false
	}
}

func (r *AssetResolver) lookup(ctx context.Context, name string) (Resolution, error) {
	image, err := r.store.FindByFilename(ctx, name)
	if err != nil {
		assetResolutions.WithLabelValues("error").Inc()
		logger.WithError(err, "asset_resolver").Warn("Image lookup failed; caching miss")
		r.cache.SetMiss(name, r.now().Add(r.missTTL))
		return Resolution{Source: AssetSourceRemote}, nil
	}
	if image == nil {
		assetResolutions.WithLabelValues("not_found").Inc()
		r.cache.SetMiss(name, r.now().Add(r.missTTL))
		return Resolution{Source: AssetSourceRemote}, nil
	}

	assetResolutions.WithLabelValues("found").Inc()
	r.cache.SetURL(name, image.URL)
	return Resolution{URL: image.URL, Source: AssetSourceRemote, Found: true}, nil
}
