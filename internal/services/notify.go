package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/raziahmad854/ai-escrow-backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NotifyMilestoneSettled records an in-app notification for a released
// milestone. Notification failures are logged, never surfaced: the settlement
// already happened.
func NotifyMilestoneSettled(db *gorm.DB, userID uuid.UUID, goal *models.Goal, milestone *models.Milestone, released decimal.Decimal) {
	notification := models.Notification{
		UserID:   userID,
		Type:     "milestone_settled",
		Title:    "Milestone verified",
		Body:     fmt.Sprintf("$%s released for %q", released.StringFixed(2), goal.Title),
		Metadata: notificationMetadata(goal.ID, milestone.ID),
	}
	if err := db.Create(&notification).Error; err != nil {
		log.Printf("notify: failed to record milestone notification for user %s: %v", userID, err)
	}
}

// NotifyGoalCompleted records an in-app notification when a goal's last
// milestone settles.
func NotifyGoalCompleted(db *gorm.DB, userID uuid.UUID, goal *models.Goal) {
	notification := models.Notification{
		UserID:   userID,
		Type:     "goal_completed",
		Title:    "Goal completed",
		Body:     fmt.Sprintf("%q is done — the full deposit has been released", goal.Title),
		Metadata: notificationMetadata(goal.ID, uuid.Nil),
	}
	if err := db.Create(&notification).Error; err != nil {
		log.Printf("notify: failed to record goal notification for user %s: %v", userID, err)
	}
}

func notificationMetadata(goalID, milestoneID uuid.UUID) *string {
	meta := map[string]string{"goalId": goalID.String()}
	if milestoneID != uuid.Nil {
		meta["milestoneId"] = milestoneID.String()
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}
