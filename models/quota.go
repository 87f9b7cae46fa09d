package models

// QuotaType names a rate-limited action
type QuotaType string

const (
	QuotaTypeCasinoPlay QuotaType = "casino_play"
	QuotaTypeFreeVote   QuotaType = "free_vote"
	QuotaTypeAIInsight  QuotaType = "ai_insight"
)

// PlatformBusinessID scopes a quota to the whole platform instead of one business
const PlatformBusinessID int64 = 0

// QuotaKey identifies one counter. PeriodKey is "YYYY-MM-DD" for daily
// quotas and ISO "YYYY-Www" for weekly ones.
type QuotaKey struct {
	AccountID  int64
	BusinessID int64
	Type       QuotaType
	PeriodKey  string
}

// AllowanceKey identifies a purchasable allowance, which does not expire
// with the period.
type AllowanceKey struct {
	AccountID  int64
	BusinessID int64
	Type       QuotaType
}

// Allowance returns the allowance sharing this counter's scope
func (k QuotaKey) Allowance() AllowanceKey {
	return AllowanceKey{AccountID: k.AccountID, BusinessID: k.BusinessID, Type: k.Type}
}

// QuotaReservation reports how a reserved use was paid for
type QuotaReservation struct {
	FromAllowance bool
	Count         int64 // counter value after the reservation, when not from allowance
}
