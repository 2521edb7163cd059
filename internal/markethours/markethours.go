// Package markethours answers whether a symbol's market is open, combining
// a fixed weekly calendar (crypto 24/7, FX/CFD Sun 22:00 UTC - Fri 22:00 UTC)
// with an optional broker-probe override for stale ticks or a disabled
// symbol.
package markethours

import (
	"time"

	"github.com/atlas-desktop/scalper-engine/pkg/utils"
)

// fxWeeklyOpenHour and fxWeeklyCloseHour are both 22:00 UTC, matching the teacher's
// forex desk convention of a single rollover hour shared by open and close.
const fxWeeklyOpenHour = 22
const fxWeeklyCloseHour = 22

// staleTickThreshold is how old a broker-probed last tick may be before the
// symbol is considered closed despite the calendar saying otherwise.
const staleTickThreshold = 1800 * time.Second

// Status is the evaluated market state for one symbol at one instant.
type Status struct {
	Symbol   string
	Open     bool
	Reason   string
	CheckedAt time.Time
}

// BrokerProbe is an optional live check a broker connector can provide:
// whether the symbol is currently visible/tradable and how stale its last
// tick is. MT5Connector.ForAccount returns an implementation bound to one
// account; PaperConnector has no use for it.
type BrokerProbe interface {
	ProbeSymbol(symbol string) (visible bool, tradable bool, lastTickAge time.Duration, err error)
}

// GetStatus evaluates whether symbol's market is open at now (UTC), first by
// the fixed weekly calendar, then narrowed by an optional broker probe.
func GetStatus(symbol string, now time.Time, probe BrokerProbe) Status {
	now = now.UTC()
	symbol = utils.FormatSymbol(symbol)

	if utils.IsCryptoSymbol(symbol) {
		return Status{Symbol: symbol, Open: true, Reason: "crypto trades 24/7", CheckedAt: now}
	}

	if st, closed := calendarStatus(symbol, now); closed {
		return st
	}

	if probe == nil {
		return Status{Symbol: symbol, Open: true, Reason: "within weekly calendar", CheckedAt: now}
	}

	visible, tradable, tickAge, err := probe.ProbeSymbol(symbol)
	if err != nil {
		// A probe failure degrades to calendar-only, rather than closing a
		// market the calendar says should be open.
		return Status{Symbol: symbol, Open: true, Reason: "broker probe unavailable, deferring to calendar", CheckedAt: now}
	}
	if !visible || !tradable {
		return Status{Symbol: symbol, Open: false, Reason: "symbol not visible or not tradable at broker", CheckedAt: now}
	}
	if tickAge > staleTickThreshold {
		return Status{Symbol: symbol, Open: false, Reason: "last tick is stale", CheckedAt: now}
	}
	return Status{Symbol: symbol, Open: true, Reason: "broker probe confirms tradable", CheckedAt: now}
}

// calendarStatus applies the Sun 22:00 UTC open / Fri 22:00 UTC close weekly
// schedule. Returns (status, true) only when the calendar says closed.
func calendarStatus(symbol string, now time.Time) (Status, bool) {
	weekday := now.Weekday()

	switch weekday {
	case time.Saturday:
		return Status{Symbol: symbol, Open: false, Reason: "weekend: Saturday closed", CheckedAt: now}, true
	case time.Sunday:
		if now.Hour() < fxWeeklyOpenHour {
			return Status{Symbol: symbol, Open: false, Reason: "weekend: before Sunday weekly open", CheckedAt: now}, true
		}
	case time.Friday:
		if now.Hour() >= fxWeeklyCloseHour {
			return Status{Symbol: symbol, Open: false, Reason: "weekend: after Friday weekly close", CheckedAt: now}, true
		}
	}
	return Status{}, false
}

// NextWeeklyOpen returns the next Sunday 22:00 UTC at or after now.
func NextWeeklyOpen(now time.Time) time.Time {
	now = now.UTC()
	daysUntilSunday := (int(time.Sunday) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day(), fxWeeklyOpenHour, 0, 0, 0, time.UTC).AddDate(0, 0, daysUntilSunday)
	if candidate.Before(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}
