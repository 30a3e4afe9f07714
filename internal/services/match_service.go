package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/models"
)

const (
	MatchSourceGemini = "gemini"
	MatchSourceLocal  = "local"
)

// matchKeys are the top-level keys of a match result. A parsed object with
// none of them is not treated as a result.
var matchKeys = []string{"compatibility_score", "category_breakdown", "summary", "recommendation"}

// MatchService evaluates the collaboration form against the portfolio.
type MatchService struct {
	gemini *GeminiClient
}

func NewMatchService(gemini *GeminiClient) *MatchService {
	return &MatchService{gemini: gemini}
}

// matchAttempt is what one upstream evaluation produced.
type matchAttempt struct {
	parsed       map[string]any
	rawText      string
	fullResponse any
}

func (a *matchAttempt) debug() map[string]any {
	d := map[string]any{"rawText": nil, "fullResponse": nil}
	if a.rawText != "" {
		d["rawText"] = truncate(a.rawText, 1000)
	}
	if a.fullResponse != nil {
		d["fullResponse"] = truncate(Stringify(a.fullResponse), 2000)
	}
	return d
}

// Evaluate never fails. A parsed model answer is returned with meta.source
// "gemini"; anything else yields the null-filled template with meta.source
// "local" and the reason in meta.gemini_error.
func (s *MatchService) Evaluate(ctx context.Context, req models.MatchRequest) map[string]any {
	var geminiErr error
	var attempt *matchAttempt

	if s.gemini != nil && s.gemini.HasKey() {
		attempt, geminiErr = s.attempt(ctx, req)
		if geminiErr == nil && attempt.parsed != nil {
			result := make(map[string]any, len(attempt.parsed)+1)
			for k, v := range attempt.parsed {
				result[k] = v
			}
			result["meta"] = map[string]any{
				"source":        MatchSourceGemini,
				"gemini_parsed": attempt.parsed,
				"gemini_debug":  attempt.debug(),
			}
			return result
		}
		if geminiErr != nil {
			logger.WithGemini("match").WithField("error", geminiErr.Error()).Warn("Gemini call failed")
		}
	}

	meta := map[string]any{
		"source":       MatchSourceLocal,
		"gemini_error": nil,
		"gemini_debug": nil,
	}
	if geminiErr != nil {
		meta["gemini_error"] = geminiErr.Error()
	} else if attempt != nil {
		meta["gemini_error"] = "model response did not contain a match result"
		meta["gemini_debug"] = attempt.debug()
	}

	result := localMatchTemplate()
	result["meta"] = meta
	return result
}

func (s *MatchService) attempt(ctx context.Context, req models.MatchRequest) (*matchAttempt, error) {
	resp, err := s.gemini.GenerateContent(ctx, "match", BuildMatchPrompt(req))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("Gemini non-ok %d: %s", resp.Status, truncate(string(resp.Body), 400))
	}

	text, ok := CandidateText(resp.Data)
	if !ok {
		span, found := BraceSpan(Stringify(resp.Data))
		if !found {
			return &matchAttempt{rawText: Stringify(resp.Data), fullResponse: resp.Data}, nil
		}
		text = span
	}

	attempt := &matchAttempt{rawText: text, fullResponse: resp.Data}
	parsed, err := ParseModelJSON(NormalizeModelText(text))
	if err != nil {
		return attempt, nil
	}
	if !hasMatchKey(parsed) {
		return attempt, nil
	}
	attempt.parsed = parsed
	return attempt, nil
}

func hasMatchKey(parsed map[string]any) bool {
	for _, k := range matchKeys {
		if _, ok := parsed[k]; ok {
			return true
		}
	}
	return false
}

func localMatchTemplate() map[string]any {
	return map[string]any{
		"compatibility_score": nil,
		"category_breakdown": map[string]any{
			"industry_score":      nil,
			"project_type_score":  nil,
			"team_role_fit_score": nil,
			"budget_score":        nil,
			"user_goals_score":    nil,
		},
		"summary":        "",
		"recommendation": "",
	}
}

// IsLocalMatch reports whether an Evaluate result came from the fallback.
func IsLocalMatch(result map[string]any) bool {
	meta, ok := result["meta"].(map[string]any)
	if !ok {
		return false
	}
	return meta["source"] == MatchSourceLocal
}

var errNotMatchResult = errors.New("not a match result")

// DecodeMatchResult reads the typed five-key result out of an Evaluate map.
func DecodeMatchResult(result map[string]any) (models.MatchResult, error) {
	var out models.MatchResult
	if !hasMatchKey(result) {
		return out, errNotMatchResult
	}
	if v, ok := result["compatibility_score"].(float64); ok {
		out.CompatibilityScore = &v
	}
	if breakdown, ok := result["category_breakdown"].(map[string]any); ok {
		out.CategoryBreakdown = models.CategoryBreakdown{
			IndustryScore:    score(breakdown["industry_score"]),
			ProjectTypeScore: score(breakdown["project_type_score"]),
			TeamRoleFitScore: score(breakdown["team_role_fit_score"]),
			BudgetScore:      score(breakdown["budget_score"]),
			UserGoalsScore:   score(breakdown["user_goals_score"]),
		}
	}
	out.Summary, _ = result["summary"].(string)
	out.Recommendation, _ = result["recommendation"].(string)
	return out, nil
}

func score(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}
