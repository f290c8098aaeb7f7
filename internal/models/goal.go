package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Goal statuses. Transitions are one-way: active goals may move to any
// terminal state, terminal states never change again.
const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusFailed    = "failed"
	GoalStatusAbandoned = "abandoned"
)

type Goal struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID       `json:"userId" gorm:"type:uuid;index;not null"`
	Title         string          `json:"title" gorm:"not null"`
	DepositAmount decimal.Decimal `json:"depositAmount" gorm:"type:numeric(20,2);not null"`
	Status        string          `json:"status" gorm:"not null;default:'active'"`
	CompletedAt   *time.Time      `json:"completedAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt  `json:"-" gorm:"index"`
	Milestones    []Milestone     `json:"milestones,omitempty" gorm:"foreignKey:GoalID"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Goal DTOs
type CreateGoalRequest struct {
	Title         string          `json:"title" validate:"required"`
	DepositAmount decimal.Decimal `json:"depositAmount" validate:"required"`
}
