package services

import (
	"context"
	"log"
	"math"
	"strings"
)

const (
	minMilestones     = 3
	maxMilestones     = 8
	minPercentage     = 5.0
	maxPercentage     = 50.0
	minDescriptionLen = 20
	maxDescriptionLen = 500

	// Totals further off than rescaleThreshold get rescaled to 100; after
	// rounding the corrected total may still drift by a few hundredths,
	// anything within sumTolerance is accepted.
	rescaleThreshold = 5.0
	sumTolerance     = 1.0
)

// Descriptions that are just filler. A proposal containing any of these is
// rejected wholesale and the fallback plan is used instead.
var genericPhrases = []string{
	"step 1",
	"step one",
	"first step",
	"milestone 1",
	"get started",
	"getting started",
	"make progress",
	"work on it",
	"work on the goal",
	"continue working",
	"do the work",
	"complete the goal",
	"finish the goal",
	"keep going",
}

// Planner turns a goal title into a validated, weighted milestone plan.
type Planner struct {
	proposer MilestoneProposer
}

func NewPlanner(proposer MilestoneProposer) *Planner {
	return &Planner{proposer: proposer}
}

// Plan never fails. It tries the external proposal service first and falls
// back to a deterministic template when the service is unavailable, returns
// garbage, or is not configured at all. Title validation (minimum length)
// happens upstream in the handler.
func (p *Planner) Plan(ctx context.Context, goalTitle string) []MilestonePlan {
	if p.proposer != nil {
		candidates, err := p.proposer.ProposeMilestones(ctx, goalTitle)
		if err != nil {
			log.Printf("planner: proposal service failed for %q: %v", goalTitle, err)
		} else if plan, ok := normalizePlan(candidates); ok {
			return plan
		} else {
			log.Printf("planner: rejected external proposal for %q, using fallback", goalTitle)
		}
	}

	return fallbackPlan(goalTitle)
}

// normalizePlan validates and normalizes an external candidate plan. A false
// return means the whole candidate is unusable.
func normalizePlan(candidates []MilestonePlan) ([]MilestonePlan, bool) {
	if len(candidates) < minMilestones || len(candidates) > maxMilestones {
		return nil, false
	}

	plan := make([]MilestonePlan, len(candidates))
	total := 0.0
	for i, c := range candidates {
		desc := strings.TrimSpace(c.Description)
		if len(desc) < minDescriptionLen || isGeneric(desc) {
			return nil, false
		}

		criteria := strings.TrimSpace(c.VerificationCriteria)
		if criteria == "" {
			criteria = "Evidence clearly showing: " + desc
		}

		pct := clampPercentage(c.Percentage)
		total += pct

		plan[i] = MilestonePlan{
			Description:          truncateDescription(desc),
			VerificationCriteria: truncateDescription(criteria),
			RequiredProofType:    normalizeProofType(c.RequiredProofType),
			Percentage:           pct,
		}
	}

	if math.Abs(total-100) > rescaleThreshold {
		factor := 100 / total
		total = 0
		for i := range plan {
			plan[i].Percentage = round2(plan[i].Percentage * factor)
			if plan[i].Percentage < minPercentage || plan[i].Percentage > maxPercentage {
				return nil, false
			}
			total += plan[i].Percentage
		}
	}

	if math.Abs(total-100) > sumTolerance {
		return nil, false
	}

	return plan, true
}

func isGeneric(description string) bool {
	lower := strings.ToLower(description)
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func clampPercentage(pct float64) float64 {
	return math.Min(math.Max(pct, minPercentage), maxPercentage)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= maxDescriptionLen {
		return s
	}
	return string(runes[:maxDescriptionLen-3]) + "..."
}

func normalizeProofType(proofType string) string {
	switch strings.ToLower(strings.TrimSpace(proofType)) {
	case "photo":
		return "photo"
	case "document":
		return "document"
	case "link":
		return "link"
	default:
		return "text"
	}
}
