package scheduler

import (
	"time"

	"github.com/scmhub/calendar"
)

// MarketClock reports whether an exchange is trading at t.
type MarketClock interface {
	IsOpen(t time.Time) bool
}

// NYSE returns the New York Stock Exchange calendar, including holidays and
// early closes. It returns nil when the calendar cannot be loaded.
func NYSE() MarketClock {
	cal := calendar.GetCalendar("xnys")
	if cal == nil {
		return nil
	}
	return cal
}
