package service

import (
	"fmt"
	"time"

	"coinledger/models"
)

// PeriodStart returns when the daily period containing now began
func PeriodStart(now time.Time, resetHour int) time.Time {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)

	// Before today's reset we are still in yesterday's period
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// NextReset returns when the daily period containing now ends
func NextReset(now time.Time, resetHour int) time.Time {
	return PeriodStart(now, resetHour).AddDate(0, 0, 1)
}

// DailyPeriodKey names the daily period containing now, e.g. "2024-03-09".
// The date is that of the period start.
func DailyPeriodKey(now time.Time, resetHour int) string {
	return PeriodStart(now, resetHour).Format("2006-01-02")
}

// WeeklyPeriodKey names the ISO week containing now, e.g. "2024-W10"
func WeeklyPeriodKey(now time.Time) string {
	year, week := now.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// NextWeeklyReset returns the start of the next ISO week (Monday 00:00 UTC)
func NextWeeklyReset(now time.Time) time.Time {
	now = now.UTC()
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysSinceMonday)
	return monday.AddDate(0, 0, 7)
}

// Periods builds quota keys from the configured reset hour and a clock
type Periods struct {
	ResetHour int
	Now       func() time.Time
}

// NewPeriods returns Periods using the wall clock
func NewPeriods(resetHour int) Periods {
	return Periods{ResetHour: resetHour, Now: time.Now}
}

func (p Periods) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Key returns the current counter for a quota type. casino_play and
// ai_insight are daily per business, free_vote is weekly and platform-wide.
func (p Periods) Key(quotaType models.QuotaType, accountID, businessID int64) models.QuotaKey {
	switch quotaType {
	case models.QuotaTypeFreeVote:
		return p.WeeklyKey(quotaType, accountID)
	default:
		return p.DailyKey(quotaType, accountID, businessID)
	}
}

// DailyKey returns the counter for the current daily period
func (p Periods) DailyKey(quotaType models.QuotaType, accountID, businessID int64) models.QuotaKey {
	return models.QuotaKey{
		AccountID:  accountID,
		BusinessID: businessID,
		Type:       quotaType,
		PeriodKey:  DailyPeriodKey(p.now(), p.ResetHour),
	}
}

// WeeklyKey returns the platform-wide counter for the current ISO week
func (p Periods) WeeklyKey(quotaType models.QuotaType, accountID int64) models.QuotaKey {
	return models.QuotaKey{
		AccountID:  accountID,
		BusinessID: models.PlatformBusinessID,
		Type:       quotaType,
		PeriodKey:  WeeklyPeriodKey(p.now()),
	}
}

// NextDailyReset returns when the current daily period ends
func (p Periods) NextDailyReset() time.Time {
	return NextReset(p.now(), p.ResetHour)
}
