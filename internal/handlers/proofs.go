package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/raziahmad854/ai-escrow-backend/internal/database"
	"github.com/raziahmad854/ai-escrow-backend/internal/middleware"
	"github.com/raziahmad854/ai-escrow-backend/internal/models"
	"github.com/raziahmad854/ai-escrow-backend/internal/services"
)

// SubmitProof routes a completion proof through the verification policy and,
// when the outcome settles, releases the milestone's share of the deposit.
// A pending or manual-review outcome is a successful response, not an error.
func SubmitProof(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}
	milestoneID, err := uuid.Parse(c.Params("milestoneId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid milestone ID",
		})
	}

	var req models.SubmitProofRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Reason = strings.TrimSpace(req.Reason)
	req.ProofURL = strings.TrimSpace(req.ProofURL)
	req.ProofDescription = strings.TrimSpace(req.ProofDescription)

	// Proof shape is validated here, upstream of the policy.
	if req.SelfCertify && req.Reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A reason is required to self-certify",
		})
	}
	if !req.SelfCertify && req.ProofURL == "" && req.ProofDescription == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Provide a proof description or URL",
		})
	}

	goal, err := services.Escrow.GoalWithMilestones(goalID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	if goal.Status != models.GoalStatusActive {
		return serviceError(c, services.ErrInvalidGoalState)
	}

	var milestone *models.Milestone
	for i := range goal.Milestones {
		if goal.Milestones[i].ID == milestoneID {
			milestone = &goal.Milestones[i]
			break
		}
	}
	if milestone == nil {
		return serviceError(c, services.ErrNotFound)
	}
	if milestone.IsCompleted {
		return serviceError(c, services.ErrAlreadyCompleted)
	}

	proof := services.Proof{
		SelfCertify:      req.SelfCertify,
		Reason:           req.Reason,
		ProofURL:         req.ProofURL,
		ProofDescription: req.ProofDescription,
	}

	outcome := services.Verify.Assess(c.UserContext(), milestone, proof)

	if outcome.Settles {
		// The ledger persists the proof fields inside the settlement
		// transaction, so a settled milestone always carries its proof.
		result, err := services.Escrow.Settle(goalID, milestoneID, userID, outcome.Status, proof)
		if err != nil {
			return serviceError(c, err)
		}

		services.NotifyMilestoneSettled(database.DB, userID, goal, milestone, result.ReleasedAmount)
		if result.GoalCompleted {
			services.NotifyGoalCompleted(database.DB, userID, goal)
		}

		return c.JSON(fiber.Map{
			"outcome":        outcome,
			"releasedAmount": result.ReleasedAmount,
			"goalCompleted":  result.GoalCompleted,
			"walletBalance":  result.WalletBalance,
		})
	}

	// Not settling: record the proof and the policy's status for review.
	proofUpdates := map[string]interface{}{"verification_status": outcome.Status}
	if req.ProofURL != "" {
		proofUpdates["proof_url"] = req.ProofURL
	}
	if req.ProofDescription != "" {
		proofUpdates["proof_description"] = req.ProofDescription
	}
	if req.SelfCertify {
		proofUpdates["self_certified"] = true
		proofUpdates["self_cert_reason"] = req.Reason
	}
	if err := database.DB.Model(&models.Milestone{}).
		Where("id = ? AND is_completed = ?", milestoneID, false).
		Updates(proofUpdates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record proof",
		})
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load wallet",
		})
	}

	return c.JSON(fiber.Map{
		"outcome":       outcome,
		"goalCompleted": false,
		"walletBalance": user.WalletBalance,
	})
}
