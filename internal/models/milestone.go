package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Milestone verification statuses.
const (
	VerificationPending       = "pending"
	VerificationAIApproved    = "ai_approved"
	VerificationManualReview  = "manual_review"
	VerificationSelfCertified = "self_certified"
)

// Milestone is a weighted slice of a goal's escrow deposit. Percentage is the
// share of the deposit released when the milestone settles; ReleasedAmount is
// written exactly once, at settlement.
type Milestone struct {
	ID                   uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	GoalID               uuid.UUID       `json:"goalId" gorm:"type:uuid;index;not null"`
	Position             int             `json:"position" gorm:"not null"`
	Description          string          `json:"description" gorm:"not null"`
	VerificationCriteria string          `json:"verificationCriteria" gorm:"not null"`
	RequiredProofType    string          `json:"requiredProofType" gorm:"not null;default:'text'"`
	Percentage           float64         `json:"percentage" gorm:"not null"`
	IsCompleted          bool            `json:"isCompleted" gorm:"default:false"`
	VerificationStatus   string          `json:"verificationStatus" gorm:"not null;default:'pending'"`
	ReleasedAmount       decimal.Decimal `json:"releasedAmount" gorm:"type:numeric(20,2);not null;default:0"`
	ProofURL             *string         `json:"proofUrl"`
	ProofDescription     *string         `json:"proofDescription"`
	SelfCertified        bool            `json:"selfCertified" gorm:"default:false"`
	SelfCertReason       *string         `json:"selfCertReason"`
	CompletedAt          *time.Time      `json:"completedAt"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (m *Milestone) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Proof DTOs
type SubmitProofRequest struct {
	SelfCertify      bool   `json:"selfCertify"`
	Reason           string `json:"reason"`
	ProofURL         string `json:"proofUrl"`
	ProofDescription string `json:"proofDescription"`
}
