package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/logger"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.0-flash"

	maxTrackedCalls = 100
)

// GeminiClient calls the generateContent endpoint. It is stateless per call:
// every request carries the whole prompt.
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client

	apiCalls  []GeminiAPICall
	callMutex sync.RWMutex
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// GeminiResponse is the raw upstream answer. Data is the decoded JSON, or the
// body as a string when it was not JSON.
type GeminiResponse struct {
	Status int
	Body   []byte
	Data   any
}

func (r *GeminiResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// GeminiAPICall is one tracked upstream call.
type GeminiAPICall struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Endpoint  string        `json:"endpoint"`
	Model     string        `json:"model"`
	CallType  string        `json:"callType"` // "match", "chat", "edge"
	PromptLen int           `json:"promptLength"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
	Response  string        `json:"response"`
	Error     string        `json:"error,omitempty"`
}

func NewGeminiClient(baseURL, model, apiKey string, timeout time.Duration) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		apiCalls: make([]GeminiAPICall, 0),
	}
}

func (g *GeminiClient) HasKey() bool {
	return g.apiKey != ""
}

func (g *GeminiClient) Model() string {
	return g.model
}

// Endpoint is the generateContent URL for the configured model.
func (g *GeminiClient) Endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
}

// GetAPICalls returns a copy of the tracked calls, oldest first
func (g *GeminiClient) GetAPICalls() []GeminiAPICall {
	g.callMutex.RLock()
	defer g.callMutex.RUnlock()

	calls := make([]GeminiAPICall, len(g.apiCalls))
	copy(calls, g.apiCalls)
	return calls
}

// ClearAPICalls clears the API call history
func (g *GeminiClient) ClearAPICalls() {
	g.callMutex.Lock()
	defer g.callMutex.Unlock()
	g.apiCalls = make([]GeminiAPICall, 0)
}

func (g *GeminiClient) addAPICall(call GeminiAPICall) {
	g.callMutex.Lock()
	defer g.callMutex.Unlock()

	if len(g.apiCalls) >= maxTrackedCalls {
		g.apiCalls = g.apiCalls[1:]
	}
	g.apiCalls = append(g.apiCalls, call)
}

// GenerateContent sends prompt as a single text part. Any HTTP answer is
// returned as a response; only transport failures and a missing key are
// errors.
func (g *GeminiClient) GenerateContent(ctx context.Context, callType, prompt string) (*GeminiResponse, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return g.post(ctx, callType, len(prompt), body)
}

// Forward relays an already-encoded generateContent body.
func (g *GeminiClient) Forward(ctx context.Context, body []byte) (*GeminiResponse, error) {
	return g.post(ctx, "edge", len(body), body)
}

func (g *GeminiClient) post(ctx context.Context, callType string, promptLen int, body []byte) (*GeminiResponse, error) {
	if !g.HasKey() {
		return nil, apperrors.Configuration("Missing GOOGLE_API_KEY on server")
	}

	call := GeminiAPICall{
		ID:        fmt.Sprintf("gemini_%d", time.Now().UnixNano()),
		Timestamp: time.Now(),
		Endpoint:  g.Endpoint(),
		Model:     g.model,
		CallType:  callType,
		PromptLen: promptLen,
	}
	log := logger.WithGemini(callType)
	log.WithField("prompt_length", promptLen).Debug("Making Gemini request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		observeUpstream("gemini", 0, elapsed)
		call.Duration = elapsed
		call.Error = fmt.Sprintf("HTTP request failed: %v", err)
		g.addAPICall(call)
		log.WithField("error", err.Error()).Warn("Gemini request failed")
		return nil, apperrors.Upstream(0, "gemini request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	elapsed = time.Since(start)
	observeUpstream("gemini", resp.StatusCode, elapsed)

	call.Status = resp.StatusCode
	call.Duration = elapsed
	call.Response = truncate(string(respBody), 2000)
	if err != nil {
		call.Error = fmt.Sprintf("failed to read response: %v", err)
		g.addAPICall(call)
		return nil, apperrors.Upstream(resp.StatusCode, "failed to read gemini response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		call.Error = fmt.Sprintf("Gemini returned status %d", resp.StatusCode)
	}
	g.addAPICall(call)

	log.WithFields(map[string]interface{}{
		"status":   resp.StatusCode,
		"duration": elapsed.String(),
	}).Info("Gemini request completed")

	return &GeminiResponse{
		Status: resp.StatusCode,
		Body:   respBody,
		Data:   DecodeBody(respBody),
	}, nil
}
