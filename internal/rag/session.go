package rag

import "time"

// Market session labels derived from UTC time. The hour bands overlap in
// wall-clock terms; the weekend check and the ordered comparisons below make
// the outcome deterministic.
const (
	SessionWeekend  = "weekend"
	SessionUS       = "us_hours"
	SessionAsian    = "asian_session"
	SessionEuropean = "european_session"
	SessionOffHours = "off_hours"
)

// MarketSession classifies the given time into a trading-session label.
func MarketSession(t time.Time) string {
	utc := t.UTC()
	switch utc.Weekday() {
	case time.Saturday, time.Sunday:
		return SessionWeekend
	}

	hour := utc.Hour()
	switch {
	case hour >= 14 && hour < 21:
		return SessionUS
	case hour >= 0 && hour < 8:
		return SessionAsian
	case hour >= 7 && hour < 16:
		return SessionEuropean
	default:
		return SessionOffHours
	}
}
