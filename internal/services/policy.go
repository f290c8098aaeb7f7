package services

import (
	"context"
	"log"

	"github.com/raziahmad854/ai-escrow-backend/internal/models"
)

const (
	// Confidence recorded for self-certified milestones.
	selfCertConfidence = 50
	// Verified assessments at or above this confidence settle funds.
	approveConfidence = 70
	// Assessments below this confidence go to manual review.
	reviewConfidence = 50
)

// Proof is a completion claim: either a self-certification with a reason, or
// material for external assessment. Shape validation (non-empty reason,
// non-empty proof) happens upstream in the handler.
type Proof struct {
	SelfCertify      bool
	Reason           string
	ProofURL         string
	ProofDescription string
}

// Outcome is the policy's classification of a proof. Settles reports whether
// the ledger should release the milestone's funds. A degraded outcome (service
// down) is a valid outcome, not an error.
type Outcome struct {
	Verified    bool    `json:"verified"`
	Confidence  float64 `json:"confidence"`
	Analysis    string  `json:"analysis"`
	Suggestions string  `json:"suggestions,omitempty"`
	Status      string  `json:"status"`
	Settles     bool    `json:"-"`
}

// Policy routes proofs through the configured assessor and maps the verdict
// onto a milestone verification status.
type Policy struct {
	assessor ProofAssessor
}

func NewPolicy(assessor ProofAssessor) *Policy {
	return &Policy{assessor: assessor}
}

// Assess never fails: assessor errors degrade to a pending outcome that
// invites a retry or self-certification.
func (p *Policy) Assess(ctx context.Context, milestone *models.Milestone, proof Proof) Outcome {
	if proof.SelfCertify {
		return Outcome{
			Verified:   true,
			Confidence: selfCertConfidence,
			Analysis:   "Self-certified by the goal owner; no external assessment performed.",
			Status:     models.VerificationSelfCertified,
			Settles:    true,
		}
	}

	if p.assessor == nil {
		return degradedOutcome()
	}

	assessment, err := p.assessor.AssessProof(ctx, milestone.Description, milestone.VerificationCriteria, proof.ProofURL, proof.ProofDescription)
	if err != nil {
		log.Printf("policy: assessment failed for milestone %s: %v", milestone.ID, err)
		return degradedOutcome()
	}

	outcome := Outcome{
		Verified:    assessment.Verified,
		Confidence:  assessment.Confidence,
		Analysis:    assessment.Analysis,
		Suggestions: assessment.Suggestions,
	}

	switch {
	case assessment.Verified && assessment.Confidence >= approveConfidence:
		outcome.Status = models.VerificationAIApproved
		outcome.Settles = true
	case assessment.Confidence < reviewConfidence:
		outcome.Status = models.VerificationManualReview
	default:
		outcome.Status = models.VerificationPending
	}

	return outcome
}

func degradedOutcome() Outcome {
	return Outcome{
		Verified:    false,
		Confidence:  0,
		Analysis:    "The proof could not be assessed right now.",
		Suggestions: "The verification service is unavailable. Retry in a few minutes, or self-certify with a reason.",
		Status:      models.VerificationPending,
	}
}
