package markethours

import (
	"errors"
	"testing"
	"time"
)

func TestGetStatusCryptoAlwaysOpen(t *testing.T) {
	sat := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) // Saturday
	st := GetStatus("BTCUSD", sat, nil)
	if !st.Open {
		t.Errorf("expected crypto to trade 24/7, got closed: %s", st.Reason)
	}
}

func TestGetStatusClosedOnSaturday(t *testing.T) {
	sat := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	st := GetStatus("EURUSD", sat, nil)
	if st.Open {
		t.Errorf("expected FX to be closed on Saturday")
	}
}

func TestGetStatusClosedSundayBeforeOpen(t *testing.T) {
	sun := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	st := GetStatus("EURUSD", sun, nil)
	if st.Open {
		t.Errorf("expected FX to be closed Sunday before weekly open")
	}
}

func TestGetStatusOpenSundayAfterOpen(t *testing.T) {
	sun := time.Date(2026, 8, 2, 23, 0, 0, 0, time.UTC)
	st := GetStatus("EURUSD", sun, nil)
	if !st.Open {
		t.Errorf("expected FX to be open Sunday after weekly open, got: %s", st.Reason)
	}
}

func TestGetStatusClosedFridayAfterClose(t *testing.T) {
	fri := time.Date(2026, 8, 7, 23, 0, 0, 0, time.UTC)
	st := GetStatus("EURUSD", fri, nil)
	if st.Open {
		t.Errorf("expected FX to be closed Friday after weekly close")
	}
}

type fakeProbe struct {
	visible, tradable bool
	tickAge           time.Duration
	err               error
}

func (f fakeProbe) ProbeSymbol(symbol string) (bool, bool, time.Duration, error) {
	return f.visible, f.tradable, f.tickAge, f.err
}

func TestGetStatusProbeOverridesWithinCalendar(t *testing.T) {
	weekday := time.Date(2026, 8, 4, 12, 0, 0, 0, time.UTC)

	closed := GetStatus("EURUSD", weekday, fakeProbe{visible: false, tradable: false})
	if closed.Open {
		t.Errorf("expected probe invisibility to close the symbol")
	}

	stale := GetStatus("EURUSD", weekday, fakeProbe{visible: true, tradable: true, tickAge: 2 * time.Hour})
	if stale.Open {
		t.Errorf("expected a stale tick to close the symbol")
	}

	open := GetStatus("EURUSD", weekday, fakeProbe{visible: true, tradable: true, tickAge: time.Minute})
	if !open.Open {
		t.Errorf("expected fresh tradable probe to stay open, got: %s", open.Reason)
	}
}

func TestGetStatusProbeErrorDefersToCalendar(t *testing.T) {
	weekday := time.Date(2026, 8, 4, 12, 0, 0, 0, time.UTC)
	st := GetStatus("EURUSD", weekday, fakeProbe{err: errors.New("probe down")})
	if !st.Open {
		t.Errorf("expected probe failure to defer to calendar (open), got closed: %s", st.Reason)
	}
}

func TestNextWeeklyOpenIsSundayAtOpenHour(t *testing.T) {
	wed := time.Date(2026, 8, 5, 10, 0, 0, 0, time.UTC)
	next := NextWeeklyOpen(wed)
	if next.Weekday() != time.Sunday || next.Hour() != fxWeeklyOpenHour {
		t.Fatalf("expected next Sunday at %d:00 UTC, got %v", fxWeeklyOpenHour, next)
	}
	if next.Before(wed) {
		t.Errorf("expected next weekly open to be in the future")
	}
}
