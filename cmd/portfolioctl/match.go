package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portfolio/backend/internal/models"
	"github.com/portfolio/backend/internal/services"
)

const barWidth = 30

var matchReq models.MatchRequest

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score a collaboration request against the portfolio",
	Example: `  portfolioctl match --industry Retail --project-type "Brand refresh" \
    --budget "$10k-$25k" --team-size 5 --role "Marketing lead" --goals "Launch in Q3"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gemini := services.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GoogleAPIKey, cfg.GeminiTimeout())
		result := services.NewMatchService(gemini).Evaluate(cmd.Context(), matchReq)

		match, err := services.DecodeMatchResult(result)
		if err != nil {
			return err
		}

		source := boldGreen(services.MatchSourceGemini)
		if services.IsLocalMatch(result) {
			source = yellow(services.MatchSourceLocal)
		}
		fmt.Printf("%s %s\n\n", boldCyan("source:"), source)

		fmt.Printf("%-16s %s %s\n", "Overall", bar(match.CompatibilityScore), rawScore(match.CompatibilityScore))
		for _, cat := range match.CategoryBreakdown.Categories() {
			fmt.Printf("%-16s %s %s\n", cat.Label, bar(cat.Score), rawScore(cat.Score))
		}

		if match.Summary != "" {
			fmt.Printf("\n%s\n%s\n", boldCyan("Summary"), match.Summary)
		}
		if match.Recommendation != "" {
			fmt.Printf("\n%s\n%s\n", boldCyan("Recommendation"), match.Recommendation)
		}
		if meta, ok := result["meta"].(map[string]any); ok {
			if msg, ok := meta["gemini_error"].(string); ok && msg != "" {
				fmt.Printf("\n%s %s\n", red("gemini error:"), msg)
			}
		}
		return nil
	},
}

// bar draws the clamped score as a fixed-width gauge.
func bar(score *float64) string {
	filled := int(models.ClampPercent(score) / 100 * barWidth)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// rawScore prints the model's value unclamped.
func rawScore(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return fmt.Sprintf("%g", *score)
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchReq.Industry, "industry", "", "client industry")
	f.StringVar(&matchReq.ProjectType, "project-type", "", "kind of project")
	f.StringVar(&matchReq.Budget, "budget", "", "budget range")
	f.StringVar(&matchReq.TeamSize, "team-size", "", "team size")
	f.StringVar(&matchReq.Role, "role", "", "requester's role")
	f.StringVar(&matchReq.UserGoals, "goals", "", "free-form goals")
}
