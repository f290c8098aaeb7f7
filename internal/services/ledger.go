package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raziahmad854/ai-escrow-backend/internal/config"
	"github.com/raziahmad854/ai-escrow-backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Engine instances, wired once at startup.
var (
	Plans  *Planner
	Verify *Policy
	Escrow *Ledger
)

func Init(db *gorm.DB, cfg *config.Config) {
	ai := NewAIClient(cfg)
	var proposer MilestoneProposer
	var assessor ProofAssessor
	if ai.enabled {
		proposer = ai
		assessor = ai
	}

	Plans = NewPlanner(proposer)
	Verify = NewPolicy(assessor)
	Escrow = NewLedger(db)
}

const minTitleLen = 10

// Ledger owns every mutation of wallet balances and escrowed deposits. The
// conservation invariant — released funds never exceed the deposit, wallets
// never go negative — must hold after each operation.
type Ledger struct {
	db    *gorm.DB
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lockGoal serializes settlements per goal within this process. The
// conditional UPDATEs below are the cross-process guard; the mutex keeps
// SQLite, which has no row locks, consistent under concurrent submissions.
func (l *Ledger) lockGoal(goalID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[goalID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[goalID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// releaseLock drops a goal's mutex once the goal is terminal. A goroutine
// still waiting on the old mutex is harmless: terminal goals fail the status
// check and the conditional UPDATEs guard the rows.
func (l *Ledger) releaseLock(goalID uuid.UUID) {
	l.mu.Lock()
	delete(l.locks, goalID)
	l.mu.Unlock()
}

// SettleResult reports what a settlement released and where it left the goal.
type SettleResult struct {
	ReleasedAmount decimal.Decimal
	WalletBalance  decimal.Decimal
	GoalCompleted  bool
	CompletedAt    *time.Time
}

// CreateGoal validates input, debits the deposit from the user's wallet and
// persists the goal with its milestone plan in one transaction. The wallet is
// never left debited without a goal attached to the reservation.
func (l *Ledger) CreateGoal(userID uuid.UUID, title string, deposit decimal.Decimal, plan []MilestonePlan) (*models.Goal, error) {
	title = strings.TrimSpace(title)
	if len(title) < minTitleLen {
		return nil, fmt.Errorf("%w: title must be at least %d characters", ErrValidation, minTitleLen)
	}
	if !deposit.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrValidation)
	}
	if len(plan) < minMilestones {
		return nil, fmt.Errorf("%w: a goal needs at least %d milestones", ErrValidation, minMilestones)
	}
	deposit = deposit.Round(2)

	goal := &models.Goal{
		UserID:        userID,
		Title:         title,
		DepositAmount: deposit,
		Status:        models.GoalStatusActive,
	}
	for i, m := range plan {
		goal.Milestones = append(goal.Milestones, models.Milestone{
			Position:             i + 1,
			Description:          m.Description,
			VerificationCriteria: m.VerificationCriteria,
			RequiredProofType:    m.RequiredProofType,
			Percentage:           m.Percentage,
			VerificationStatus:   models.VerificationPending,
		})
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := l.reserve(tx, userID, deposit); err != nil {
			return err
		}
		return tx.Create(goal).Error
	})
	if err != nil {
		return nil, err
	}

	return goal, nil
}

// reserve conditionally debits the wallet. The WHERE clause carries the
// non-negative invariant: a balance below the amount matches no row.
func (l *Ledger) reserve(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND wallet_balance >= ?", userID, amount).
		Update("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

// Settle marks a milestone completed and credits its share of the deposit to
// the owner's wallet atomically. status is the verification status to record
// (ai_approved or self_certified); the proof that earned the settlement is
// persisted on the milestone in the same conditional update. The goal flips
// to completed in the same transaction when this was the last outstanding
// milestone.
func (l *Ledger) Settle(goalID, milestoneID, userID uuid.UUID, status string, proof Proof) (*SettleResult, error) {
	unlock := l.lockGoal(goalID)
	defer unlock()

	var result SettleResult
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var goal models.Goal
		if err := tx.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if goal.Status != models.GoalStatusActive {
			return ErrInvalidGoalState
		}

		var milestone models.Milestone
		if err := tx.Where("id = ? AND goal_id = ?", milestoneID, goalID).First(&milestone).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if milestone.IsCompleted {
			return ErrAlreadyCompleted
		}

		var alreadyReleased decimal.Decimal
		row := tx.Model(&models.Milestone{}).
			Where("goal_id = ?", goalID).
			Select("COALESCE(SUM(released_amount), 0)").Row()
		if err := row.Scan(&alreadyReleased); err != nil {
			return err
		}

		var outstanding int64
		if err := tx.Model(&models.Milestone{}).
			Where("goal_id = ? AND is_completed = ?", goalID, false).
			Count(&outstanding).Error; err != nil {
			return err
		}

		// Rounded shares of a rescaled plan can drift a few hundredths off
		// the deposit in either direction. The final settlement releases
		// exactly what is left in escrow so the conservation invariant ends
		// at equality.
		released := releasedShare(goal.DepositAmount, milestone.Percentage)
		if outstanding == 1 {
			released = goal.DepositAmount.Sub(alreadyReleased)
		}
		if alreadyReleased.Add(released).GreaterThan(goal.DepositAmount) {
			return fmt.Errorf("%w: release would exceed the escrowed deposit", ErrInvalidGoalState)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"is_completed":        true,
			"verification_status": status,
			"released_amount":     released,
			"completed_at":        now,
		}
		if proof.ProofURL != "" {
			updates["proof_url"] = proof.ProofURL
		}
		if proof.ProofDescription != "" {
			updates["proof_description"] = proof.ProofDescription
		}
		if proof.SelfCertify {
			updates["self_certified"] = true
			updates["self_cert_reason"] = proof.Reason
		}

		update := tx.Model(&models.Milestone{}).
			Where("id = ? AND is_completed = ?", milestoneID, false).
			Updates(updates)
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			// Lost a concurrent race on the completion flag.
			return ErrAlreadyCompleted
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("wallet_balance", gorm.Expr("wallet_balance + ?", released)).Error; err != nil {
			return err
		}

		if outstanding == 1 {
			if err := tx.Model(&models.Goal{}).
				Where("id = ? AND status = ?", goalID, models.GoalStatusActive).
				Updates(map[string]interface{}{
					"status":       models.GoalStatusCompleted,
					"completed_at": now,
				}).Error; err != nil {
				return err
			}
			result.GoalCompleted = true
			result.CompletedAt = &now
		}

		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		result.ReleasedAmount = released
		result.WalletBalance = user.WalletBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.GoalCompleted {
		l.releaseLock(goalID)
	}

	return &result, nil
}

// MarkGoalStatus applies an administrative one-way transition (failed or
// abandoned). Funds still in escrow stay attached to the goal for audit.
func (l *Ledger) MarkGoalStatus(goalID, userID uuid.UUID, status string) error {
	if status != models.GoalStatusFailed && status != models.GoalStatusAbandoned {
		return fmt.Errorf("%w: invalid target status %q", ErrValidation, status)
	}

	unlock := l.lockGoal(goalID)
	defer unlock()

	res := l.db.Model(&models.Goal{}).
		Where("id = ? AND user_id = ? AND status = ?", goalID, userID, models.GoalStatusActive).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := l.db.Model(&models.Goal{}).
			Where("id = ? AND user_id = ?", goalID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrInvalidGoalState
	}

	l.releaseLock(goalID)
	return nil
}

// GoalWithMilestones loads an owned goal with its ordered milestone plan.
func (l *Ledger) GoalWithMilestones(goalID, userID uuid.UUID) (*models.Goal, error) {
	var goal models.Goal
	err := l.db.
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ? AND user_id = ?", goalID, userID).
		First(&goal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &goal, nil
}

func releasedShare(deposit decimal.Decimal, percentage float64) decimal.Decimal {
	return deposit.Mul(decimal.NewFromFloat(percentage)).Div(decimal.NewFromInt(100)).Round(2)
}
