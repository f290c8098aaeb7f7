package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

type fakeProposer struct {
	plans []MilestonePlan
	err   error
}

func (f *fakeProposer) ProposeMilestones(ctx context.Context, goalTitle string) ([]MilestonePlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plans, nil
}

func checkPlanInvariants(t *testing.T, plan []MilestonePlan) {
	t.Helper()
	if len(plan) < minMilestones || len(plan) > maxMilestones {
		t.Fatalf("plan has %d milestones, want %d-%d", len(plan), minMilestones, maxMilestones)
	}
	total := 0.0
	for i, m := range plan {
		if m.Percentage < minPercentage || m.Percentage > maxPercentage {
			t.Fatalf("milestone %d percentage %v out of [%v,%v]", i, m.Percentage, minPercentage, maxPercentage)
		}
		if len(strings.TrimSpace(m.Description)) < minDescriptionLen {
			t.Fatalf("milestone %d description too short: %q", i, m.Description)
		}
		if m.VerificationCriteria == "" {
			t.Fatalf("milestone %d has no verification criteria", i)
		}
		total += m.Percentage
	}
	if math.Abs(total-100) > sumTolerance {
		t.Fatalf("plan percentages sum to %v, want 100±%v", total, sumTolerance)
	}
}

func validCandidates() []MilestonePlan {
	return []MilestonePlan{
		{Description: "Finish the first three chapters with written notes", VerificationCriteria: "Notes covering chapters 1-3", RequiredProofType: "document", Percentage: 25},
		{Description: "Finish the middle section and summarize each chapter", VerificationCriteria: "Summaries for the middle chapters", RequiredProofType: "document", Percentage: 25},
		{Description: "Finish the final chapters and list key takeaways", VerificationCriteria: "A takeaways list covering the final chapters", RequiredProofType: "document", Percentage: 25},
		{Description: "Write a one-page review of the whole book", VerificationCriteria: "The finished one-page review", RequiredProofType: "link", Percentage: 25},
	}
}

func TestPlanAcceptsValidProposal(t *testing.T) {
	planner := NewPlanner(&fakeProposer{plans: validCandidates()})

	plan := planner.Plan(context.Background(), "Read one book every month")
	checkPlanInvariants(t, plan)
	if plan[0].Description != validCandidates()[0].Description {
		t.Fatalf("expected the external proposal to be kept, got %q", plan[0].Description)
	}
}

func TestPlanFallsBackWhenProposerFails(t *testing.T) {
	planner := NewPlanner(&fakeProposer{err: errors.New("connection timed out")})

	plan := planner.Plan(context.Background(), "Run a marathon next spring")
	checkPlanInvariants(t, plan)
	if len(plan) != 4 {
		t.Fatalf("fallback plan has %d milestones, want 4", len(plan))
	}
}

func TestPlanFallsBackWithoutProposer(t *testing.T) {
	planner := NewPlanner(nil)

	plan := planner.Plan(context.Background(), "Wake up at 6am every day")
	checkPlanInvariants(t, plan)
}

func TestPlanRescalesSkewedTotals(t *testing.T) {
	candidates := validCandidates()
	candidates[0].Percentage = 10
	candidates[1].Percentage = 20
	candidates[2].Percentage = 20
	candidates[3].Percentage = 40 // total 90, off by more than the rescale threshold

	planner := NewPlanner(&fakeProposer{plans: candidates})
	plan := planner.Plan(context.Background(), "Read one book every month")
	checkPlanInvariants(t, plan)

	if plan[0].Description != candidates[0].Description {
		t.Fatalf("rescaling should keep the proposal, got fallback instead")
	}
}

func TestPlanRejectsGenericDescriptions(t *testing.T) {
	candidates := validCandidates()
	candidates[1].Description = "Step 1: get started on the goal today"

	planner := NewPlanner(&fakeProposer{plans: candidates})
	plan := planner.Plan(context.Background(), "Read one book every month")
	checkPlanInvariants(t, plan)

	for _, m := range plan {
		if m.Description == candidates[1].Description {
			t.Fatalf("generic milestone %q survived validation", m.Description)
		}
	}
}

func TestPlanRejectsTooFewMilestones(t *testing.T) {
	planner := NewPlanner(&fakeProposer{plans: validCandidates()[:2]})

	plan := planner.Plan(context.Background(), "Read one book every month")
	checkPlanInvariants(t, plan)
	if plan[0].Description == validCandidates()[0].Description {
		t.Fatalf("a 2-milestone proposal should have been rejected")
	}
}

func TestPlanTruncatesLongDescriptions(t *testing.T) {
	candidates := validCandidates()
	candidates[0].Description = strings.Repeat("finish another chapter ", 40)

	planner := NewPlanner(&fakeProposer{plans: candidates})
	plan := planner.Plan(context.Background(), "Read one book every month")
	checkPlanInvariants(t, plan)

	if len([]rune(plan[0].Description)) > maxDescriptionLen {
		t.Fatalf("description not truncated: %d runes", len([]rune(plan[0].Description)))
	}
	if !strings.HasSuffix(plan[0].Description, "...") {
		t.Fatalf("truncated description missing continuation marker: %q", plan[0].Description[len(plan[0].Description)-10:])
	}
}

func TestFallbackCategories(t *testing.T) {
	cases := []struct {
		title string
		want  string // substring of the first milestone's description
	}{
		{"Wake up at 6am every day", "sleep"},
		{"Lose 10 pounds before summer", "baseline"},
		{"Read twelve books this year", "study schedule"},
		{"Launch my side business", "one-page plan"},
		{"Do something unusual", "written plan"},
	}

	for _, tc := range cases {
		plan := fallbackPlan(tc.title)
		checkPlanInvariants(t, plan)
		if !strings.Contains(strings.ToLower(plan[0].Description), tc.want) {
			t.Errorf("title %q: first milestone %q does not match category (want substring %q)", tc.title, plan[0].Description, tc.want)
		}
	}
}
