package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/models"
	"github.com/portfolio/backend/internal/services"
)

type AIController struct {
	responder
	match  *services.MatchService
	chat   *services.ChatService
	gemini *services.GeminiClient
}

func NewAIController(match *services.MatchService, chat *services.ChatService, gemini *services.GeminiClient, production bool) *AIController {
	return &AIController{
		responder: responder{production: production},
		match:     match,
		chat:      chat,
		gemini:    gemini,
	}
}

// Match evaluates the collaboration form. Upstream trouble never fails the
// request; only an unreadable body does.
func (ac *AIController) Match(c *gin.Context) {
	var req models.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ac.fail(c, "ai_controller", err, nil)
		return
	}

	result := ac.match.Evaluate(c.Request.Context(), req)
	logger.WithGemini("match").WithField("local", services.IsLocalMatch(result)).Debug("Match evaluated")
	c.JSON(http.StatusOK, result)
}

// Chat relays a transcript. An unreadable body is treated as an empty
// transcript.
func (ac *AIController) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = models.ChatRequest{}
	}

	reply, err := ac.chat.Reply(c.Request.Context(), req)
	if err != nil {
		var upstream *services.ChatUpstreamError
		if errors.As(err, &upstream) {
			ac.fail(c, "ai_controller", err, gin.H{"debug": upstream.Debug})
			return
		}
		ac.fail(c, "ai_controller", err, nil)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// EdgeGemini forwards a raw generateContent body with the server-held key
// and answers with the upstream status and body unchanged.
func (ac *AIController) EdgeGemini(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		ac.fail(c, "edge_relay", err, nil)
		return
	}

	resp, err := ac.gemini.Forward(c.Request.Context(), body)
	if err != nil {
		ac.fail(c, "edge_relay", err, nil)
		return
	}
	c.Data(resp.Status, "application/json", resp.Body)
}

// GetAPICalls lists recent upstream model calls
func (ac *AIController) GetAPICalls(c *gin.Context) {
	calls := ac.gemini.GetAPICalls()
	c.JSON(http.StatusOK, gin.H{
		"calls": calls,
		"count": len(calls),
	})
}

// ClearAPICalls empties the call history
func (ac *AIController) ClearAPICalls(c *gin.Context) {
	ac.gemini.ClearAPICalls()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
