package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/models"
)

// ChatDebug describes the upstream answer a chat reply came from.
type ChatDebug struct {
	ModelVersion any     `json:"modelVersion"`
	ResponseID   any     `json:"responseId"`
	RawSnippet   *string `json:"rawSnippet"`
	Status       int     `json:"status"`
}

type ChatReply struct {
	Reply string    `json:"reply"`
	Debug ChatDebug `json:"debug"`
}

// ChatUpstreamError is a non-success answer from the model. It maps to 502.
type ChatUpstreamError struct {
	Status int
	Debug  ChatDebug
}

func (e *ChatUpstreamError) Error() string {
	return fmt.Sprintf("Gemini proxy %d", e.Status)
}

func (e *ChatUpstreamError) Unwrap() error {
	return apperrors.Upstream(http.StatusBadGateway, e.Error(), nil)
}

type ChatService struct {
	gemini *GeminiClient
}

func NewChatService(gemini *GeminiClient) *ChatService {
	return &ChatService{gemini: gemini}
}

// Reply sends the whole transcript and extracts the model's text. A missing
// key is a ConfigurationError.
func (s *ChatService) Reply(ctx context.Context, req models.ChatRequest) (*ChatReply, error) {
	if s.gemini == nil || !s.gemini.HasKey() {
		return nil, apperrors.Configuration("Missing GOOGLE_API_KEY on server")
	}

	resp, err := s.gemini.GenerateContent(ctx, "chat", BuildChatPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("Gemini proxy error: %w", err)
	}

	debug := chatDebug(resp)
	if !resp.OK() {
		return nil, &ChatUpstreamError{Status: resp.Status, Debug: debug}
	}
	return &ChatReply{Reply: ChatReplyText(resp.Data), Debug: debug}, nil
}

func chatDebug(resp *GeminiResponse) ChatDebug {
	debug := ChatDebug{Status: resp.Status}
	if root, ok := resp.Data.(map[string]any); ok {
		debug.ModelVersion = root["modelVersion"]
		debug.ResponseID = root["responseId"]
	}
	if b, err := json.Marshal(resp.Data); err == nil {
		snippet := truncate(string(b), 2000)
		debug.RawSnippet = &snippet
	}
	return debug
}
