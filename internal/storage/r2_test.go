package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio/backend/internal/apperrors"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:        endpoint,
		Bucket:          "assets",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	}
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Config{Endpoint: "https://r2.example.com"})
	require.Error(t, err)

	var cfgErr *apperrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(err))
}

func TestPublicURLForKey(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		bucket   string
		want     string
	}{
		{"bucket appended", "https://acc.r2.cloudflarestorage.com/", "assets", "https://acc.r2.cloudflarestorage.com/assets/uploads/1-a.png"},
		{"bucket already in endpoint", "https://acc.r2.dev/assets", "assets", "https://acc.r2.dev/assets/uploads/1-a.png"},
		{"no endpoint", "", "assets", ""},
		{"no bucket", "https://acc.r2.dev", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicURLForKey(tt.endpoint, tt.bucket, "uploads/1-a.png"))
		})
	}
}

func TestPresignPutIsScopedToKey(t *testing.T) {
	c, err := New(testConfig("https://acc.r2.cloudflarestorage.com"))
	require.NoError(t, err)

	raw, err := c.PresignPut(context.Background(), "uploads/123-photo.png", "image/png", 0)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/assets/uploads/123-photo.png", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignGetHonoursTTL(t *testing.T) {
	c, err := New(testConfig("https://acc.r2.cloudflarestorage.com"))
	require.NoError(t, err)

	raw, err := c.PresignGet(context.Background(), "uploads/a.png", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))
}

func TestSyncURLAndSourcePath(t *testing.T) {
	cfg := testConfig("https://acc.r2.cloudflarestorage.com")
	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://acc.r2.cloudflarestorage.com/assets/hero%20video.webm", c.SyncURL("hero video.webm"))
	assert.Equal(t, "r2://assets/hero video.webm", c.SourcePath("hero video.webm"))

	cfg.PublicBaseURL = "https://pub.example.dev/"
	c, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://pub.example.dev/a.png", c.SyncURL("a.png"))
}

func TestGetObjectStreamsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/assets/uploads/a.png", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	c, err := New(testConfig(server.URL))
	require.NoError(t, err)

	obj, err := c.GetObject(context.Background(), "uploads/a.png")
	require.NoError(t, err)
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "image/png", obj.ContentType)
}

func TestGetObjectMissingIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
	}))
	defer server.Close()

	c, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = c.GetObject(context.Background(), "missing.png")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}

func TestListAllFollowsContinuation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		if r.URL.Query().Get("continuation-token") == "" {
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult><Name>assets</Name><IsTruncated>true</IsTruncated><NextContinuationToken>page2</NextContinuationToken>
<Contents><Key>a.png</Key><Size>10</Size></Contents></ListBucketResult>`))
			return
		}
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult><Name>assets</Name><IsTruncated>false</IsTruncated>
<Contents><Key>videos/b.webm</Key><Size>20</Size></Contents></ListBucketResult>`))
	}))
	defer server.Close()

	c, err := New(testConfig(server.URL))
	require.NoError(t, err)

	objects, err := c.ListAll(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "a.png", objects[0].Key)
	assert.Equal(t, int64(20), objects[1].Size)
	assert.True(t, strings.HasPrefix(objects[1].Key, "videos/"))
}
