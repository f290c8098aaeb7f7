package services

import "strings"

// fallbackCategory maps goal-title keywords to a fixed 4-milestone template.
// Templates always sum to exactly 100 and never touch the network.
type fallbackCategory struct {
	keywords   []string
	milestones []MilestonePlan
}

var fallbackCategories = []fallbackCategory{
	{
		keywords: []string{"sleep", "wake", "morning", "bed", "rest", "insomnia"},
		milestones: []MilestonePlan{
			{
				Description:          "Track your current sleep and wake times every day for one full week",
				VerificationCriteria: "A sleep log covering at least 7 consecutive days with times recorded",
				RequiredProofType:    "document",
				Percentage:           20,
			},
			{
				Description:          "Hit your target bedtime within 30 minutes for seven consecutive nights",
				VerificationCriteria: "Sleep log or tracker screenshot showing 7 nights at the target bedtime",
				RequiredProofType:    "photo",
				Percentage:           25,
			},
			{
				Description:          "Hit your target wake-up time within 30 minutes for seven consecutive mornings",
				VerificationCriteria: "Sleep log or tracker screenshot showing 7 mornings at the target wake time",
				RequiredProofType:    "photo",
				Percentage:           25,
			},
			{
				Description:          "Hold the full sleep schedule for two straight weeks, missing at most one day",
				VerificationCriteria: "A 14-day log showing both bedtime and wake time on schedule",
				RequiredProofType:    "document",
				Percentage:           30,
			},
		},
	},
	{
		keywords: []string{"weight", "gym", "fitness", "workout", "exercise", "run", "diet", "lose", "muscle", "train"},
		milestones: []MilestonePlan{
			{
				Description:          "Record your baseline: current measurements and a written weekly training plan",
				VerificationCriteria: "Baseline numbers plus a concrete plan listing days and activities",
				RequiredProofType:    "document",
				Percentage:           20,
			},
			{
				Description:          "Complete every planned session for two consecutive weeks without skipping",
				VerificationCriteria: "Training log, gym check-ins, or tracker data covering all planned sessions",
				RequiredProofType:    "photo",
				Percentage:           25,
			},
			{
				Description:          "Reach the halfway point of your target with measurements to show it",
				VerificationCriteria: "Updated measurements demonstrating roughly half the intended change",
				RequiredProofType:    "photo",
				Percentage:           25,
			},
			{
				Description:          "Reach your full target and hold it for at least one week afterwards",
				VerificationCriteria: "Final measurements at target, taken at least a week apart",
				RequiredProofType:    "photo",
				Percentage:           30,
			},
		},
	},
	{
		keywords: []string{"learn", "read", "study", "course", "book", "language", "skill", "practice"},
		milestones: []MilestonePlan{
			{
				Description:          "Pick your materials and write a study schedule with weekly targets",
				VerificationCriteria: "A list of chosen materials and a dated schedule of weekly targets",
				RequiredProofType:    "document",
				Percentage:           20,
			},
			{
				Description:          "Complete the first quarter of the material with notes or exercises to show",
				VerificationCriteria: "Notes, completed exercises, or course progress covering the first quarter",
				RequiredProofType:    "document",
				Percentage:           25,
			},
			{
				Description:          "Complete three quarters of the material and pass a self-test on it",
				VerificationCriteria: "Progress evidence plus a scored self-test or quiz result",
				RequiredProofType:    "document",
				Percentage:           25,
			},
			{
				Description:          "Finish all the material and produce something that demonstrates the skill",
				VerificationCriteria: "A finished project, essay, recording, or certificate demonstrating the skill",
				RequiredProofType:    "link",
				Percentage:           30,
			},
		},
	},
	{
		keywords: []string{"career", "business", "job", "launch", "startup", "promotion", "client", "portfolio", "interview", "side project"},
		milestones: []MilestonePlan{
			{
				Description:          "Write a one-page plan: what you are building or pursuing and why it matters",
				VerificationCriteria: "A one-page plan naming the concrete outcome and the steps to it",
				RequiredProofType:    "document",
				Percentage:           20,
			},
			{
				Description:          "Produce the first tangible artifact: a draft, prototype, or application sent",
				VerificationCriteria: "The artifact itself or a submission confirmation",
				RequiredProofType:    "link",
				Percentage:           25,
			},
			{
				Description:          "Get external feedback from at least three relevant people and write up what changed",
				VerificationCriteria: "Feedback notes from three named sources and the revisions they drove",
				RequiredProofType:    "document",
				Percentage:           25,
			},
			{
				Description:          "Ship or submit the final version and record the concrete outcome",
				VerificationCriteria: "Evidence the final version is live, submitted, or accepted",
				RequiredProofType:    "link",
				Percentage:           30,
			},
		},
	},
}

// genericFallback covers titles that match no category.
var genericFallback = []MilestonePlan{
	{
		Description:          "Define what finished looks like and break the goal into a written plan",
		VerificationCriteria: "A written plan stating the end state and the steps to reach it",
		RequiredProofType:    "document",
		Percentage:           20,
	},
	{
		Description:          "Complete the first quarter of the plan with evidence of the work done",
		VerificationCriteria: "Artifacts or records covering the first quarter of the plan",
		RequiredProofType:    "document",
		Percentage:           25,
	},
	{
		Description:          "Complete three quarters of the plan with evidence of the work done",
		VerificationCriteria: "Artifacts or records covering three quarters of the plan",
		RequiredProofType:    "document",
		Percentage:           25,
	},
	{
		Description:          "Finish the remaining work and show the end state you defined at the start",
		VerificationCriteria: "Evidence the end state defined in the plan has been reached",
		RequiredProofType:    "photo",
		Percentage:           30,
	},
}

// fallbackPlan synthesizes a deterministic plan by keyword-matching the title.
// It always succeeds.
func fallbackPlan(goalTitle string) []MilestonePlan {
	lower := strings.ToLower(goalTitle)
	for _, category := range fallbackCategories {
		for _, keyword := range category.keywords {
			if strings.Contains(lower, keyword) {
				return clonePlan(category.milestones)
			}
		}
	}
	return clonePlan(genericFallback)
}

func clonePlan(plan []MilestonePlan) []MilestonePlan {
	out := make([]MilestonePlan, len(plan))
	copy(out, plan)
	return out
}
