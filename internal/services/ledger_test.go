package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/raziahmad854/ai-escrow-backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupLedger(t *testing.T) (*Ledger, *models.User) {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Goal{}, &models.Milestone{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := &models.User{
		Email:         "test@example.com",
		WalletBalance: decimal.NewFromInt(100),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	return NewLedger(db), user
}

func quarterPlan() []MilestonePlan {
	plan := make([]MilestonePlan, 4)
	for i := range plan {
		plan[i] = MilestonePlan{
			Description:          fmt.Sprintf("Finish part %d of the overall goal with evidence", i+1),
			VerificationCriteria: fmt.Sprintf("Evidence covering part %d", i+1),
			RequiredProofType:    "document",
			Percentage:           25,
		}
	}
	return plan
}

func selfCertProof() Proof {
	return Proof{SelfCertify: true, Reason: "Done and logged"}
}

func walletBalance(t *testing.T, l *Ledger, user *models.User) decimal.Decimal {
	t.Helper()
	var u models.User
	if err := l.db.First(&u, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return u.WalletBalance
}

func TestCreateGoalDebitsWallet(t *testing.T) {
	ledger, user := setupLedger(t)

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if goal.Status != models.GoalStatusActive {
		t.Fatalf("status = %q, want active", goal.Status)
	}
	if got := walletBalance(t, ledger, user); !got.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("wallet = %s, want 60", got)
	}

	loaded, err := ledger.GoalWithMilestones(goal.ID, user.ID)
	if err != nil {
		t.Fatalf("load goal: %v", err)
	}
	if len(loaded.Milestones) != 4 {
		t.Fatalf("milestones = %d, want 4", len(loaded.Milestones))
	}
}

func TestCreateGoalInsufficientFunds(t *testing.T) {
	ledger, user := setupLedger(t)

	_, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(150), quarterPlan())
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	if got := walletBalance(t, ledger, user); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("wallet = %s, want 100 (unchanged)", got)
	}

	var goals int64
	ledger.db.Model(&models.Goal{}).Count(&goals)
	if goals != 0 {
		t.Fatalf("a goal was persisted despite the failed debit")
	}
}

func TestCreateGoalRejectsShortTitle(t *testing.T) {
	ledger, user := setupLedger(t)

	_, err := ledger.CreateGoal(user.ID, "short", decimal.NewFromInt(10), quarterPlan())
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSettleReleasesShare(t *testing.T) {
	ledger, user := setupLedger(t)

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	result, err := ledger.Settle(goal.ID, goal.Milestones[0].ID, user.ID, models.VerificationSelfCertified, selfCertProof())
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if !result.ReleasedAmount.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("released = %s, want 10.00", result.ReleasedAmount)
	}
	if !result.WalletBalance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("wallet = %s, want 70", result.WalletBalance)
	}
	if result.GoalCompleted {
		t.Fatalf("goal completed after one of four milestones")
	}

	loaded, _ := ledger.GoalWithMilestones(goal.ID, user.ID)
	m := loaded.Milestones[0]
	if !m.IsCompleted || m.CompletedAt == nil {
		t.Fatalf("milestone not marked completed: %+v", m)
	}
	if m.VerificationStatus != models.VerificationSelfCertified {
		t.Fatalf("verification status = %q", m.VerificationStatus)
	}
	if !m.SelfCertified || m.SelfCertReason == nil || *m.SelfCertReason != "Done and logged" {
		t.Fatalf("self-certification proof not persisted with the settlement: %+v", m)
	}
}

func TestSettlePersistsExternalProof(t *testing.T) {
	ledger, user := setupLedger(t)

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	proof := Proof{
		ProofURL:         "https://example.com/notes",
		ProofDescription: "Photos of my notes for every chapter",
	}
	if _, err := ledger.Settle(goal.ID, goal.Milestones[0].ID, user.ID, models.VerificationAIApproved, proof); err != nil {
		t.Fatalf("settle: %v", err)
	}

	loaded, _ := ledger.GoalWithMilestones(goal.ID, user.ID)
	m := loaded.Milestones[0]
	if m.ProofURL == nil || *m.ProofURL != proof.ProofURL {
		t.Fatalf("proof URL not persisted: %+v", m)
	}
	if m.ProofDescription == nil || *m.ProofDescription != proof.ProofDescription {
		t.Fatalf("proof description not persisted: %+v", m)
	}
	if m.VerificationStatus != models.VerificationAIApproved {
		t.Fatalf("verification status = %q", m.VerificationStatus)
	}
}

func TestSettleIdempotentUnderRetry(t *testing.T) {
	ledger, user := setupLedger(t)

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if _, err := ledger.Settle(goal.ID, goal.Milestones[0].ID, user.ID, models.VerificationSelfCertified, selfCertProof()); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	balanceAfterFirst := walletBalance(t, ledger, user)

	_, err = ledger.Settle(goal.ID, goal.Milestones[0].ID, user.ID, models.VerificationSelfCertified, selfCertProof())
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second settle err = %v, want ErrAlreadyCompleted", err)
	}

	if got := walletBalance(t, ledger, user); !got.Equal(balanceAfterFirst) {
		t.Fatalf("wallet moved on retried settle: %s -> %s", balanceAfterFirst, got)
	}
}

func TestSettleCompletesGoalOnLastMilestone(t *testing.T) {
	ledger, user := setupLedger(t)

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	for i, m := range goal.Milestones {
		result, err := ledger.Settle(goal.ID, m.ID, user.ID, models.VerificationSelfCertified, selfCertProof())
		if err != nil {
			t.Fatalf("settle %d: %v", i, err)
		}

		last := i == len(goal.Milestones)-1
		if result.GoalCompleted != last {
			t.Fatalf("settle %d: goalCompleted = %v, want %v", i, result.GoalCompleted, last)
		}
		if last && result.CompletedAt == nil {
			t.Fatalf("completion did not set completedAt")
		}
	}

	loaded, _ := ledger.GoalWithMilestones(goal.ID, user.ID)
	if loaded.Status != models.GoalStatusCompleted {
		t.Fatalf("goal status = %q, want completed", loaded.Status)
	}
	if loaded.CompletedAt == nil {
		t.Fatalf("goal completedAt not persisted")
	}

	// Conservation: released sums to exactly the deposit, wallet is whole again.
	released := decimal.Zero
	for _, m := range loaded.Milestones {
		released = released.Add(m.ReleasedAmount)
	}
	if !released.Equal(loaded.DepositAmount) {
		t.Fatalf("released %s != deposit %s", released, loaded.DepositAmount)
	}
	if got := walletBalance(t, ledger, user); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("wallet = %s, want 100", got)
	}
}

func TestSettleRejectsInactiveGoal(t *testing.T) {
	ledger, user := setupLedger(t)

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if err := ledger.MarkGoalStatus(goal.ID, user.ID, models.GoalStatusAbandoned); err != nil {
		t.Fatalf("abandon: %v", err)
	}

	_, err = ledger.Settle(goal.ID, goal.Milestones[0].ID, user.ID, models.VerificationSelfCertified, selfCertProof())
	if !errors.Is(err, ErrInvalidGoalState) {
		t.Fatalf("err = %v, want ErrInvalidGoalState", err)
	}
}

func TestMarkGoalStatusIsOneWay(t *testing.T) {
	ledger, user := setupLedger(t)

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if err := ledger.MarkGoalStatus(goal.ID, user.ID, models.GoalStatusAbandoned); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	err = ledger.MarkGoalStatus(goal.ID, user.ID, models.GoalStatusFailed)
	if !errors.Is(err, ErrInvalidGoalState) {
		t.Fatalf("err = %v, want ErrInvalidGoalState", err)
	}
}

func TestSettleUnknownMilestone(t *testing.T) {
	ledger, user := setupLedger(t)

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	_, err = ledger.Settle(goal.ID, user.ID /* not a milestone id */, user.ID, models.VerificationSelfCertified, selfCertProof())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWalletStats(t *testing.T) {
	ledger, user := setupLedger(t)

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if _, err := ledger.Settle(goal.ID, goal.Milestones[0].ID, user.ID, models.VerificationSelfCertified, selfCertProof()); err != nil {
		t.Fatalf("settle: %v", err)
	}

	stats, err := ledger.WalletStats(user.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.TotalGoals != 1 || stats.ActiveGoals != 1 || stats.CompletedGoals != 0 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/0", stats.TotalGoals, stats.ActiveGoals, stats.CompletedGoals)
	}
	if !stats.TotalDeposited.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("deposited = %s, want 40", stats.TotalDeposited)
	}
	if !stats.TotalReleased.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("released = %s, want 10", stats.TotalReleased)
	}
	if !stats.InEscrow.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("in escrow = %s, want 30", stats.InEscrow)
	}
}

// settleAll settles every milestone in order and returns the last result.
func settleAll(t *testing.T, ledger *Ledger, goal *models.Goal, user *models.User) *SettleResult {
	t.Helper()
	var last *SettleResult
	for i, m := range goal.Milestones {
		result, err := ledger.Settle(goal.ID, m.ID, user.ID, models.VerificationSelfCertified, selfCertProof())
		if err != nil {
			t.Fatalf("settle %d: %v", i, err)
		}
		last = result
	}
	return last
}

func TestSettleReconcilesUpwardRoundingDrift(t *testing.T) {
	ledger, user := setupLedger(t)

	// A rescaled plan whose percentages sum to 100.01: the rounded shares of
	// a 50 deposit would overshoot it by a cent without reconciliation.
	plan := []MilestonePlan{}
	for _, pct := range []float64{21.28, 21.28, 21.28, 21.28, 14.89} {
		plan = append(plan, MilestonePlan{
			Description:          fmt.Sprintf("Finish the next stretch of the goal, weighted at %v", pct),
			VerificationCriteria: "Evidence covering this stretch",
			RequiredProofType:    "document",
			Percentage:           pct,
		})
	}

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(50), plan)
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	last := settleAll(t, ledger, goal, user)
	if !last.GoalCompleted {
		t.Fatalf("goal did not complete after settling every milestone")
	}

	loaded, _ := ledger.GoalWithMilestones(goal.ID, user.ID)
	released := decimal.Zero
	for _, m := range loaded.Milestones {
		released = released.Add(m.ReleasedAmount)
	}
	if !released.Equal(loaded.DepositAmount) {
		t.Fatalf("released %s != deposit %s", released, loaded.DepositAmount)
	}
	if got := walletBalance(t, ledger, user); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("wallet = %s, want 100", got)
	}
}

func TestSettleReconcilesDownwardRoundingDrift(t *testing.T) {
	ledger, user := setupLedger(t)

	// Thirds sum to 99.99: without reconciliation the goal would complete
	// with a cent still trapped in escrow.
	plan := []MilestonePlan{}
	for i := 0; i < 3; i++ {
		plan = append(plan, MilestonePlan{
			Description:          fmt.Sprintf("Finish third %d of the goal with evidence", i+1),
			VerificationCriteria: fmt.Sprintf("Evidence covering third %d", i+1),
			RequiredProofType:    "document",
			Percentage:           33.33,
		})
	}

	goal, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(100), plan)
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	last := settleAll(t, ledger, goal, user)
	if !last.GoalCompleted {
		t.Fatalf("goal did not complete after settling every milestone")
	}
	if !last.ReleasedAmount.Equal(decimal.RequireFromString("33.34")) {
		t.Fatalf("final release = %s, want the 33.34 remainder", last.ReleasedAmount)
	}

	loaded, _ := ledger.GoalWithMilestones(goal.ID, user.ID)
	released := decimal.Zero
	for _, m := range loaded.Milestones {
		released = released.Add(m.ReleasedAmount)
	}
	if !released.Equal(loaded.DepositAmount) {
		t.Fatalf("released %s != deposit %s", released, loaded.DepositAmount)
	}
	if got := walletBalance(t, ledger, user); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("wallet = %s, want 100", got)
	}
}

func TestGoalLockReleasedOnTerminalStates(t *testing.T) {
	ledger, user := setupLedger(t)

	completed, err := ledger.CreateGoal(user.ID, "Read twelve books this year", decimal.NewFromInt(40), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	settleAll(t, ledger, completed, user)

	abandoned, err := ledger.CreateGoal(user.ID, "Run a marathon next spring", decimal.NewFromInt(20), quarterPlan())
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if err := ledger.MarkGoalStatus(abandoned.ID, user.ID, models.GoalStatusAbandoned); err != nil {
		t.Fatalf("abandon: %v", err)
	}

	ledger.mu.Lock()
	held := len(ledger.locks)
	ledger.mu.Unlock()
	if held != 0 {
		t.Fatalf("%d goal locks still held after terminal transitions", held)
	}
}
