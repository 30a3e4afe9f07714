package models

// MatchRequest is the collaboration form. Every field is optional.
type MatchRequest struct {
	Industry    string `json:"industry"`
	ProjectType string `json:"projectType"`
	Budget      string `json:"budget"`
	TeamSize    string `json:"teamSize"`
	Role        string `json:"role"`
	UserGoals   string `json:"userGoals"`
}

// CategoryBreakdown scores are 0-100 or null.
type CategoryBreakdown struct {
	IndustryScore    *float64 `json:"industry_score"`
	ProjectTypeScore *float64 `json:"project_type_score"`
	TeamRoleFitScore *float64 `json:"team_role_fit_score"`
	BudgetScore      *float64 `json:"budget_score"`
	UserGoalsScore   *float64 `json:"user_goals_score"`
}

// MatchResult is the five-key object the model is asked to return.
type MatchResult struct {
	CompatibilityScore *float64          `json:"compatibility_score"`
	CategoryBreakdown  CategoryBreakdown `json:"category_breakdown"`
	Summary            string            `json:"summary"`
	Recommendation     string            `json:"recommendation"`
}

// Categories lists the breakdown in display order.
func (b CategoryBreakdown) Categories() []Category {
	return []Category{
		{Key: "industry_score", Label: "Industry", Score: b.IndustryScore},
		{Key: "project_type_score", Label: "Project type", Score: b.ProjectTypeScore},
		{Key: "team_role_fit_score", Label: "Team / role fit", Score: b.TeamRoleFitScore},
		{Key: "budget_score", Label: "Budget", Score: b.BudgetScore},
		{Key: "user_goals_score", Label: "Goals", Score: b.UserGoalsScore},
	}
}

type Category struct {
	Key   string
	Label string
	Score *float64
}

// ClampPercent bounds a score to [0,100] for display. Unknown scores are 0.
// The stored value is never modified.
func ClampPercent(score *float64) float64 {
	if score == nil {
		return 0
	}
	v := *score
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
