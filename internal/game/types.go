package game

import "time"

type BusinessStatus string

const (
	StatusActive     BusinessStatus = "active"
	StatusSold       BusinessStatus = "sold"
	StatusIntegrated BusinessStatus = "integrated"
	StatusMerged     BusinessStatus = "merged"
	StatusWoundDown  BusinessStatus = "wound_down"
)

// Terminal statuses are kept for reporting but never re-enter active aggregations.
func (s BusinessStatus) Terminal() bool {
	return s == StatusSold || s == StatusIntegrated || s == StatusMerged
}

type Concentration string

const (
	ConcentrationLow    Concentration = "low"
	ConcentrationMedium Concentration = "medium"
	ConcentrationHigh   Concentration = "high"
)

type OperatorQuality string

const (
	OperatorStrong   OperatorQuality = "strong"
	OperatorModerate OperatorQuality = "moderate"
	OperatorWeak     OperatorQuality = "weak"
)

type Trend string

const (
	TrendGrowing   Trend = "growing"
	TrendFlat      Trend = "flat"
	TrendDeclining Trend = "declining"
)

type CompetitivePosition string

const (
	PositionLeader       CompetitivePosition = "leader"
	PositionCompetitive  CompetitivePosition = "competitive"
	PositionCommoditized CompetitivePosition = "commoditized"
)

// DueDiligence signals are fixed when the deal closes.
type DueDiligence struct {
	Concentration       Concentration       `json:"concentration"`
	OperatorQuality     OperatorQuality     `json:"operator_quality"`
	Trend               Trend               `json:"trend"`
	CustomerRetention   float64             `json:"customer_retention"`
	CompetitivePosition CompetitivePosition `json:"competitive_position"`
}

type ImprovementType string

const (
	ImprovementOperatingPlaybook      ImprovementType = "operating_playbook"
	ImprovementPricingModel           ImprovementType = "pricing_model"
	ImprovementServiceExpansion       ImprovementType = "service_expansion"
	ImprovementFixUnderperformance    ImprovementType = "fix_underperformance"
	ImprovementRecurringRevenue       ImprovementType = "recurring_revenue_conversion"
	ImprovementManagementProfessional ImprovementType = "management_professionalization"
	ImprovementDigitalTransformation  ImprovementType = "digital_transformation"
)

type OperationalImprovement struct {
	Type   ImprovementType `json:"type"`
	Round  int             `json:"round"`
	Effect float64         `json:"effect"`
}

// Business is one owned operating company. Optional numeric fields read as zero when unset.
type Business struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SectorID string `json:"sector_id"`
	Subtype  string `json:"subtype,omitempty"`

	Revenue           int64   `json:"revenue"`
	EbitdaMargin      float64 `json:"ebitda_margin"`
	Ebitda            int64   `json:"ebitda"`
	RevenueGrowthRate float64 `json:"revenue_growth_rate"`
	MarginDriftRate   float64 `json:"margin_drift_rate"`

	AcquisitionRevenue         int64   `json:"acquisition_revenue"`
	AcquisitionMargin          float64 `json:"acquisition_margin"`
	AcquisitionEbitda          int64   `json:"acquisition_ebitda"`
	AcquisitionMultiple        float64 `json:"acquisition_multiple"`
	AcquisitionPrice           int64   `json:"acquisition_price"`
	AcquisitionRound           int     `json:"acquisition_round"`
	AcquisitionSizeTierPremium float64 `json:"acquisition_size_tier_premium,omitempty"`

	PeakRevenue int64 `json:"peak_revenue"`
	PeakEbitda  int64 `json:"peak_ebitda"`

	QualityRating int          `json:"quality_rating"`
	DueDiligence  DueDiligence `json:"due_diligence"`

	SellerNoteBalance         int64   `json:"seller_note_balance,omitempty"`
	SellerNoteRate            float64 `json:"seller_note_rate,omitempty"`
	SellerNoteRoundsRemaining int     `json:"seller_note_rounds_remaining,omitempty"`
	BankDebtBalance           int64   `json:"bank_debt_balance,omitempty"`
	BankDebtRate              float64 `json:"bank_debt_rate,omitempty"`
	BankDebtRoundsRemaining   int     `json:"bank_debt_rounds_remaining,omitempty"`
	EarnoutRemaining          int64   `json:"earnout_remaining,omitempty"`
	EarnoutTarget             float64 `json:"earnout_target,omitempty"`

	IsPlatform                 bool     `json:"is_platform,omitempty"`
	PlatformScale              int      `json:"platform_scale,omitempty"`
	BoltOnIDs                  []string `json:"bolt_on_ids,omitempty"`
	ParentPlatformID           string   `json:"parent_platform_id,omitempty"`
	IntegratedPlatformID       string   `json:"integrated_platform_id,omitempty"`
	IntegrationRoundsRemaining int      `json:"integration_rounds_remaining,omitempty"`

	Improvements         []OperationalImprovement `json:"improvements,omitempty"`
	QualityImprovedTiers int                      `json:"quality_improved_tiers,omitempty"`

	WasMerged          bool     `json:"was_merged,omitempty"`
	MergerBalanceRatio *float64 `json:"merger_balance_ratio,omitempty"`

	Status    BusinessStatus `json:"status"`
	ExitPrice int64          `json:"exit_price,omitempty"`
	ExitRound int            `json:"exit_round,omitempty"`
}

func (b Business) Active() bool {
	return b.Status == StatusActive
}

func (b Business) Clone() Business {
	out := b
	if b.BoltOnIDs != nil {
		out.BoltOnIDs = append([]string(nil), b.BoltOnIDs...)
	}
	if b.Improvements != nil {
		out.Improvements = append([]OperationalImprovement(nil), b.Improvements...)
	}
	if b.MergerBalanceRatio != nil {
		ratio := *b.MergerBalanceRatio
		out.MergerBalanceRatio = &ratio
	}
	return out
}

// YearsHeld never goes negative.
func (b Business) YearsHeld(currentRound int) int {
	if currentRound < b.AcquisitionRound {
		return 0
	}
	return currentRound - b.AcquisitionRound
}

func (b Business) TotalDebt() int64 {
	return b.SellerNoteBalance + b.BankDebtBalance + b.EarnoutRemaining
}

type TurnaroundStatus string

const (
	TurnaroundActive    TurnaroundStatus = "active"
	TurnaroundCompleted TurnaroundStatus = "completed"
	TurnaroundPartial   TurnaroundStatus = "partial"
	TurnaroundFailed    TurnaroundStatus = "failed"
)

type ActiveTurnaround struct {
	ID         string           `json:"id"`
	BusinessID string           `json:"business_id"`
	ProgramID  string           `json:"program_id"`
	StartRound int              `json:"start_round"`
	EndRound   int              `json:"end_round"`
	Status     TurnaroundStatus `json:"status"`
}

// GameState is owned by the round orchestrator. Core functions receive it by value and
// return a fresh copy.
type GameState struct {
	Seed               int64   `json:"seed"`
	Round              int     `json:"round"`
	MaxRounds          int     `json:"max_rounds"`
	InterestRate       float64 `json:"interest_rate"`
	Cash               int64   `json:"cash"`
	HoldcoDebt         int64   `json:"holdco_debt"`
	InitialCapital     int64   `json:"initial_capital"`
	TotalDistributions int64   `json:"total_distributions"`

	Businesses          []Business           `json:"businesses"`
	IntegratedPlatforms []IntegratedPlatform `json:"integrated_platforms,omitempty"`
	SharedServices      []SharedService      `json:"shared_services,omitempty"`
	ActiveTurnarounds   []ActiveTurnaround   `json:"active_turnarounds,omitempty"`
	TurnaroundTier      int                  `json:"turnaround_tier"`

	InflationRoundsRemaining        int `json:"inflation_rounds_remaining,omitempty"`
	CreditTighteningRoundsRemaining int `json:"credit_tightening_rounds_remaining,omitempty"`
	ReferralDealsPending            int `json:"referral_deals_pending,omitempty"`

	LastEventType  EventType   `json:"last_event_type,omitempty"`
	CurrentEvent   *GameEvent  `json:"current_event,omitempty"`
	EventHistory   []GameEvent `json:"event_history,omitempty"`
	MetricsHistory []Metrics   `json:"metrics_history,omitempty"`
}

func (s GameState) Clone() GameState {
	out := s
	out.Businesses = make([]Business, len(s.Businesses))
	for i, b := range s.Businesses {
		out.Businesses[i] = b.Clone()
	}
	out.IntegratedPlatforms = make([]IntegratedPlatform, len(s.IntegratedPlatforms))
	for i, p := range s.IntegratedPlatforms {
		out.IntegratedPlatforms[i] = p.Clone()
	}
	out.SharedServices = append([]SharedService(nil), s.SharedServices...)
	out.ActiveTurnarounds = append([]ActiveTurnaround(nil), s.ActiveTurnarounds...)
	out.EventHistory = append([]GameEvent(nil), s.EventHistory...)
	out.MetricsHistory = append([]Metrics(nil), s.MetricsHistory...)
	if s.CurrentEvent != nil {
		ev := s.CurrentEvent.Clone()
		out.CurrentEvent = &ev
	}
	return out
}

func (s GameState) ActiveBusinesses() []Business {
	out := make([]Business, 0, len(s.Businesses))
	for _, b := range s.Businesses {
		if b.Active() {
			out = append(out, b)
		}
	}
	return out
}

func (s GameState) BusinessIndex(id string) int {
	for i, b := range s.Businesses {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s GameState) EffectiveMaxRounds() int {
	if s.MaxRounds <= 0 {
		return DefaultMaxRounds
	}
	return s.MaxRounds
}

func (s GameState) PendingChoice() bool {
	return s.CurrentEvent != nil && len(s.CurrentEvent.Choices) > 0
}

type DistressLevel string

const (
	DistressComfortable DistressLevel = "comfortable"
	DistressElevated    DistressLevel = "elevated"
	DistressStressed    DistressLevel = "stressed"
	DistressBreach      DistressLevel = "breach"
)

type Metrics struct {
	Round            int                   `json:"round"`
	Cash             int64                 `json:"cash"`
	HoldcoDebt       int64                 `json:"holdco_debt"`
	OpcoDebt         int64                 `json:"opco_debt"`
	TotalDebt        int64                 `json:"total_debt"`
	NetDebt          int64                 `json:"net_debt"`
	TotalRevenue     int64                 `json:"total_revenue"`
	TotalEbitda      int64                 `json:"total_ebitda"`
	AvgEbitdaMargin  float64               `json:"avg_ebitda_margin"`
	TotalFcf         int64                 `json:"total_fcf"`
	InterestExpense  int64                 `json:"interest_expense"`
	SharedServices   int64                 `json:"shared_services_cost"`
	Tax              PortfolioTaxBreakdown `json:"tax"`
	PortfolioValue   int64                 `json:"portfolio_value"`
	EquityValue      int64                 `json:"equity_value"`
	InvestedCapital  int64                 `json:"invested_capital"`
	Roic             float64               `json:"roic"`
	Moic             float64               `json:"moic"`
	NetDebtToEbitda  float64               `json:"net_debt_to_ebitda"`
	DistressLevel    DistressLevel         `json:"distress_level"`
	ActiveBusinesses int                   `json:"active_businesses"`
	CashConversion   float64               `json:"cash_conversion"`
}

// ScoreSnapshot is the terminal result a player submits to the leaderboard.
type ScoreSnapshot struct {
	RunID              string  `json:"run_id"`
	ChallengeID        int64   `json:"challenge_id,omitempty"`
	Seed               int64   `json:"seed"`
	Rounds             int     `json:"rounds"`
	MaxRounds          int     `json:"max_rounds"`
	EquityValue        int64   `json:"equity_value"`
	TotalDistributions int64   `json:"total_distributions"`
	Moic               float64 `json:"moic"`
	Roic               float64 `json:"roic"`
	Businesses         int     `json:"businesses"`
	Score              int64   `json:"score"`
}

type ScoreInput struct {
	UserID         string
	Snapshot       ScoreSnapshot
	IdempotencyKey string
}

type ScoreResult struct {
	ScoreID int64 `json:"score_id"`
	Score   int64 `json:"score"`
	Rank    int64 `json:"rank"`
}

type LeaderboardRow struct {
	Rank        int64     `json:"rank"`
	Username    string    `json:"username"`
	Score       int64     `json:"score"`
	Moic        float64   `json:"moic"`
	Rounds      int       `json:"rounds"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Challenge struct {
	ID        int64     `json:"id"`
	Day       time.Time `json:"day"`
	Seed      int64     `json:"seed"`
	MaxRounds int       `json:"max_rounds"`
	ParScore  int64     `json:"par_score"`
}
