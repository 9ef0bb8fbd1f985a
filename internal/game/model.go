package game

import "errors"

// Money amounts are whole thousands of dollars. Ratios and rates are plain fractions.
const (
	TaxRate = 0.30

	MinMargin     = 0.03
	MaxMargin     = 0.80
	MinGrowthRate = -0.10
	MaxGrowthRate = 0.20

	EbitdaFloorFraction = 0.30

	MinExitMultiple = 2.0

	DefaultMaxRounds    = 20
	DefaultInterestRate = 0.07
	MinInterestRate     = 0.03
	MaxInterestRate     = 0.15

	StarterCapital = int64(20_000)
)

var (
	ErrBusinessNotFound     = errors.New("business not found")
	ErrBusinessInactive     = errors.New("business is not active")
	ErrTurnaroundActive     = errors.New("business already has an active turnaround")
	ErrProgramNotFound      = errors.New("turnaround program not found")
	ErrProgramIneligible    = errors.New("turnaround program not eligible for business")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrUnknownChoice        = errors.New("choice not offered by current event")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrInvalidScore         = errors.New("invalid score snapshot")
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTxConflict           = errors.New("transaction conflict, retry")
	ErrPendingChoice        = errors.New("current event is waiting for a choice")
	ErrGameOver             = errors.New("game is over")
	ErrServiceLocked        = errors.New("shared service requires more active businesses")
	ErrAlreadyUnlocked      = errors.New("already unlocked")
	ErrPlatformIneligible   = errors.New("portfolio does not qualify for platform")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrNoReferralDeal       = errors.New("no referral deal pending")
	ErrUnknownImprovement   = errors.New("unknown improvement")
	ErrImprovementApplied   = errors.New("improvement already applied")
	ErrTuckInIneligible     = errors.New("businesses cannot be combined")
)
