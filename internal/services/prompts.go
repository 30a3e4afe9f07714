package services

import (
	"fmt"
	"strings"

	"github.com/portfolio/backend/internal/models"
)

// Prompt constants for the collaboration match evaluation

const (
	// MATCH_SYSTEM_PROMPT frames the model as the portfolio's evaluation engine
	MATCH_SYSTEM_PROMPT = `You are an evaluation engine for Luis Ibarra's portfolio website.
You MUST return only a single JSON object (no markdown, no commentary, no code fences).
Luis is a front-end focused fullstack developer with a background in industrial design, rapid prototyping, UI/UX, React, Node, Supabase, Cloudflare, R2, Neon, MongoDB, PostgreSQL, Gemini AI, computer vision and object oriented programming.
Be Luis's advocate but realistic about fit.
Luis doesn't have professional experience but has a very strong portfolio with 20-30 great projects. Luis is looking for entry level software engineering jobs, internships or freelance opportunities. Do not invent skills Luis doesn't have.
Produce a numeric compatibility score and a category breakdown with numeric scores.
All numeric scores must be numbers (0-100) or null if unknown.`

	// MATCH_USER_PROMPT carries the six form fields and the required schema
	MATCH_USER_PROMPT = `User Inputs:
Industry: %s
Project Type: %s
Budget: %s
Team Size: %s
Luis Role: %s
User Goals Text: "%s"

Return a single JSON object EXACTLY matching this schema (use these keys):
{
  "compatibility_score": <number 0-100 or null>,
  "category_breakdown": {
    "industry_score": <number 0-100 or null>,
    "project_type_score": <number 0-100 or null>,
    "team_role_fit_score": <number 0-100 or null>,
    "budget_score": <number 0-100 or null>,
    "user_goals_score": <number 0-100 or null>
  },
  "summary": "<short human readable summary>",
  "recommendation": "<short recommendation to hiring manager as to best role for Luis>"
}

Return only that JSON object.`
)

// BuildMatchPrompt assembles the single text part sent for an evaluation.
// Double quotes in the free-text goals become single quotes so the quoted
// field stays well formed.
func BuildMatchPrompt(req models.MatchRequest) string {
	goals := strings.ReplaceAll(req.UserGoals, `"`, `'`)
	user := fmt.Sprintf(MATCH_USER_PROMPT,
		req.Industry,
		req.ProjectType,
		req.Budget,
		req.TeamSize,
		req.Role,
		goals,
	)
	return MATCH_SYSTEM_PROMPT + "\n\n" + user
}

// BuildChatPrompt flattens a transcript into one block ending with an
// "Assistant:" cue. Any role other than user renders as Assistant.
func BuildChatPrompt(req models.ChatRequest) string {
	var b strings.Builder
	if req.SystemPrompt != "" {
		b.WriteString(req.SystemPrompt)
		b.WriteString("\n\n")
	}
	for i, m := range req.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if m.Role == models.ChatRoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Text)
	}
	b.WriteString("\n\nAssistant:")
	return b.String()
}
