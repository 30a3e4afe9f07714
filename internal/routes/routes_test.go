package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/middleware"
	"github.com/portfolio/backend/internal/models"
	"github.com/portfolio/backend/internal/services"
	"github.com/portfolio/backend/internal/services/testutil"
	"github.com/portfolio/backend/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	router *gin.Engine
	store  *testutil.MemoryImageStore
	gemini *services.GeminiClient
}

const defaultStorageEndpoint = "https://acc.r2.cloudflarestorage.com"

func newHarness(t *testing.T, cfg *config.Config, geminiURL string) *harness {
	t.Helper()
	return newHarnessWithStorage(t, cfg, geminiURL, defaultStorageEndpoint)
}

func newHarnessWithStorage(t *testing.T, cfg *config.Config, geminiURL, endpoint string) *harness {
	t.Helper()
	store := &testutil.MemoryImageStore{}
	storageClient, err := storage.New(storage.Config{
		Endpoint:        endpoint,
		Bucket:          "assets",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	gemini := services.NewGeminiClient(geminiURL, "", cfg.GoogleAPIKey, 5*time.Second)
	svc := &Services{
		Storage: storageClient,
		Images:  store,
		Gemini:  gemini,
		Match:   services.NewMatchService(gemini),
		Chat:    services.NewChatService(gemini),
		Uploads: services.NewUploadService(services.UploadServiceOptions{
			Storage:  storageClient,
			Endpoint: endpoint,
			Bucket:   "assets",
			Store:    store,
		}),
		Relay:    services.NewRelay(services.RelayOptions{Storage: storageClient, AllowedHost: endpoint}),
		Resolver: services.NewAssetResolver(services.AssetResolverOptions{Remote: cfg.UseDBImages, Store: store}),
		GitHub:   services.NewGitHubService(services.GitHubOptions{APIURL: "http://127.0.0.1:1"}),
	}

	r := gin.New()
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigin))
	r.Use(gin.Recovery())
	SetupRoutes(r, cfg, svc)
	return &harness{router: r, store: store, gemini: gemini}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func fakeGeminiServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func devConfig() *config.Config {
	return &config.Config{AppEnv: "development", CORSOrigin: "*", GoogleAPIKey: "k"}
}

func TestAuthorizeUpload(t *testing.T) {
	h := newHarness(t, devConfig(), "")

	w := h.do(http.MethodPost, "/uploads/authorize", `{"filename":"photo.png","contentType":"image/png"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Regexp(t, `^uploads/\d+-photo\.png$`, body["key"])
	assert.Contains(t, body["publicUrl"], body["key"].(string))
	assert.Contains(t, body["url"], "X-Amz-Signature")

	w = h.do(http.MethodPost, "/uploads/authorize", `{"contentType":"image/png"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decode(t, w)
	assert.Equal(t, "missing filename", errBody["error"])
	assert.NotEmpty(t, errBody["stack"])
}

func TestErrorsHideStackInProduction(t *testing.T) {
	cfg := devConfig()
	cfg.AppEnv = "production"
	h := newHarness(t, cfg, "")

	w := h.do(http.MethodGet, "/uploads/lookup", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "missing filename or key", body["error"])
	_, hasStack := body["stack"]
	assert.False(t, hasStack)

	w = h.do(http.MethodGet, "/ai/calls", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfirmThenLookup(t *testing.T) {
	h := newHarness(t, devConfig(), "")

	w := h.do(http.MethodPost, "/uploads/confirm", `{"key":"abc.png","filename":"abc.png","publicUrl":"https://host/bucket/abc.png","size":12}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	row := body["row"].(map[string]any)
	assert.Equal(t, "https://host/bucket/abc.png", row["url"])
	assert.NotEmpty(t, row["id"])
	assert.NotEmpty(t, row["uploaded_at"])

	h.store.Seed(models.Image{Filename: "xabc.png", URL: "https://host/bucket/xabc.png"})

	w = h.do(http.MethodGet, "/uploads/lookup?key=abc.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	row = decode(t, w)["row"].(map[string]any)
	assert.Equal(t, "https://host/bucket/abc.png", row["url"])

	w = h.do(http.MethodGet, "/uploads/lookup?filename=none.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["row"])

	w = h.do(http.MethodPost, "/uploads/confirm", `{"filename":"abc.png"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing key or filename", decode(t, w)["error"])
}

func TestProxyRejectsForeignHost(t *testing.T) {
	h := newHarness(t, devConfig(), "")

	w := h.do(http.MethodGet, "/uploads/proxy?url=https://evil.example/a.png", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "url not allowed", decode(t, w)["error"])

	w = h.do(http.MethodGet, "/uploads/proxy", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/uploads/stream", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchFallsBackWithoutCandidates(t *testing.T) {
	srv := fakeGeminiServer(t, http.StatusOK, `{"usageMetadata":{}}`)
	h := newHarness(t, devConfig(), srv.URL)

	w := h.do(http.MethodPost, "/ai/match", `{"industry":"Retail"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Nil(t, body["compatibility_score"])
	assert.Equal(t, "local", body["meta"].(map[string]any)["source"])

	w = h.do(http.MethodPost, "/ai/match", `{not json`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMatchFromGemini(t *testing.T) {
	answer := "```json\n{\"compatibility_score\": 90, \"summary\": \"Great\"}\n```"
	payload, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": answer}}}}},
	})
	srv := fakeGeminiServer(t, http.StatusOK, string(payload))
	h := newHarness(t, devConfig(), srv.URL)

	w := h.do(http.MethodPost, "/ai/match", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(90), body["compatibility_score"])
	assert.Equal(t, "gemini", body["meta"].(map[string]any)["source"])

	w = h.do(http.MethodGet, "/ai/calls", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = h.do(http.MethodDelete, "/ai/calls", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.gemini.GetAPICalls())
}

func TestChatEndpoint(t *testing.T) {
	srv := fakeGeminiServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Hi there"}]}}],"responseId":"r1"}`)
	h := newHarness(t, devConfig(), srv.URL)

	w := h.do(http.MethodPost, "/ai/chat", `{"systemPrompt":"Be nice","messages":[{"role":"user","text":"Hello"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Hi there", body["reply"])
	assert.Equal(t, "r1", body["debug"].(map[string]any)["responseId"])
}

func TestChatUpstreamFailureIs502WithDebug(t *testing.T) {
	srv := fakeGeminiServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	h := newHarness(t, devConfig(), srv.URL)

	w := h.do(http.MethodPost, "/ai/chat", `{"messages":[]}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Gemini proxy 500", body["error"])
	assert.Equal(t, float64(500), body["debug"].(map[string]any)["status"])
}

func TestChatMissingKey(t *testing.T) {
	cfg := devConfig()
	cfg.GoogleAPIKey = ""
	h := newHarness(t, cfg, "")

	w := h.do(http.MethodPost, "/ai/chat", `{"messages":[]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Missing GOOGLE_API_KEY on server", decode(t, w)["error"])

	// the match endpoint degrades instead
	w = h.do(http.MethodPost, "/ai/match", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "local", decode(t, w)["meta"].(map[string]any)["source"])
}

func TestEdgeRelay(t *testing.T) {
	srv := fakeGeminiServer(t, http.StatusTooManyRequests, `{"error":{"code":429}}`)
	cfg := devConfig()
	cfg.ProxyKey = "edge-secret"
	h := newHarness(t, cfg, srv.URL)

	req := httptest.NewRequest(http.MethodPost, "/edge/gemini", bytes.NewBufferString(`{"contents":[]}`))
	req.Header.Set("Origin", "https://static.example")
	req.Header.Set(middleware.ProxyKeyHeader, "edge-secret")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":{"code":429}}`, w.Body.String())
	assert.Equal(t, "https://static.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = h.do(http.MethodPost, "/edge/gemini", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAssetResolveEndpoint(t *testing.T) {
	h := newHarness(t, devConfig(), "")

	w := h.do(http.MethodGet, "/assets/resolve?name=//hero.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "/hero.png", body["url"])
	assert.Equal(t, "local", body["source"])

	w = h.do(http.MethodGet, "/assets/resolve", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	cfg := devConfig()
	cfg.UseDBImages = true
	h = newHarness(t, cfg, "")
	w = h.do(http.MethodGet, "/assets/resolve?name=missing.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Nil(t, body["url"])
	assert.Equal(t, "remote", body["source"])
}

// fakeBucket serves path-style objects under /assets/. Objects without a
// type are answered with no Content-Type header at all.
func fakeBucket(t *testing.T) *httptest.Server {
	t.Helper()
	objects := map[string]struct{ body, contentType string }{
		"/assets/a.png":    {"PNG", "image/png"},
		"/assets/blob.bin": {"raw bytes", ""},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		obj, ok := objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if obj.contentType != "" {
			w.Header().Set("Content-Type", obj.contentType)
		} else {
			w.Header()["Content-Type"] = nil
		}
		io.WriteString(w, obj.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRelayResponsesArePermissiveUnderSiteCORS(t *testing.T) {
	bucket := fakeBucket(t)
	cfg := devConfig()
	cfg.CORSOrigin = "https://site.example"
	h := newHarnessWithStorage(t, cfg, "", bucket.URL)

	for _, path := range []string{
		"/uploads/proxy?url=" + bucket.URL + "/assets/a.png",
		"/uploads/stream?key=a.png",
	} {
		t.Run(path, func(t *testing.T) {
			w := h.do(http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "PNG", w.Body.String())
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}

	// other routes keep the site policy
	w := h.do(http.MethodGet, "/assets/resolve?name=hero.png", "")
	assert.Equal(t, "https://site.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRelayOmitsUnknownContentType(t *testing.T) {
	bucket := fakeBucket(t)
	h := newHarnessWithStorage(t, devConfig(), "", bucket.URL)

	for _, path := range []string{
		"/uploads/proxy?url=" + bucket.URL + "/assets/blob.bin",
		"/uploads/stream?key=blob.bin",
	} {
		t.Run(path, func(t *testing.T) {
			w := h.do(http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "raw bytes", w.Body.String())
			_, present := w.Header()["Content-Type"]
			assert.False(t, present)
		})
	}
}
