package services

import (
	"github.com/google/uuid"
	"github.com/raziahmad854/ai-escrow-backend/internal/models"
	"github.com/shopspring/decimal"
)

// WalletStats summarizes a user's escrow activity alongside the balance.
type WalletStats struct {
	TotalGoals     int64           `json:"totalGoals"`
	ActiveGoals    int64           `json:"activeGoals"`
	CompletedGoals int64           `json:"completedGoals"`
	TotalDeposited decimal.Decimal `json:"totalDeposited"`
	TotalReleased  decimal.Decimal `json:"totalReleased"`
	InEscrow       decimal.Decimal `json:"inEscrow"`
}

func (l *Ledger) WalletStats(userID uuid.UUID) (*WalletStats, error) {
	stats := &WalletStats{}

	if err := l.db.Model(&models.Goal{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalGoals).Error; err != nil {
		return nil, err
	}
	if err := l.db.Model(&models.Goal{}).
		Where("user_id = ? AND status = ?", userID, models.GoalStatusActive).
		Count(&stats.ActiveGoals).Error; err != nil {
		return nil, err
	}
	if err := l.db.Model(&models.Goal{}).
		Where("user_id = ? AND status = ?", userID, models.GoalStatusCompleted).
		Count(&stats.CompletedGoals).Error; err != nil {
		return nil, err
	}

	row := l.db.Model(&models.Goal{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(deposit_amount), 0)").Row()
	if err := row.Scan(&stats.TotalDeposited); err != nil {
		return nil, err
	}

	row = l.db.Model(&models.Milestone{}).
		Joins("JOIN goals ON goals.id = milestones.goal_id").
		Where("goals.user_id = ?", userID).
		Select("COALESCE(SUM(milestones.released_amount), 0)").Row()
	if err := row.Scan(&stats.TotalReleased); err != nil {
		return nil, err
	}

	// Funds still escrowed against active goals: deposits not yet released.
	var activeDeposits, activeReleased decimal.Decimal
	row = l.db.Model(&models.Goal{}).
		Where("user_id = ? AND status = ?", userID, models.GoalStatusActive).
		Select("COALESCE(SUM(deposit_amount), 0)").Row()
	if err := row.Scan(&activeDeposits); err != nil {
		return nil, err
	}
	row = l.db.Model(&models.Milestone{}).
		Joins("JOIN goals ON goals.id = milestones.goal_id").
		Where("goals.user_id = ? AND goals.status = ?", userID, models.GoalStatusActive).
		Select("COALESCE(SUM(milestones.released_amount), 0)").Row()
	if err := row.Scan(&activeReleased); err != nil {
		return nil, err
	}
	stats.InEscrow = activeDeposits.Sub(activeReleased)

	return stats, nil
}
