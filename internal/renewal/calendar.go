// Package renewal implements the calendar arithmetic behind the summary
// dashboard: contract expiry dates, recurring renewal due dates, and the
// urgency window that decides what shows up in the "expire soon" and
// "need renew" lists.
//
// Everything here is pure. Dates are UTC midnight-aligned time.Time values;
// callers pass "today" explicitly so results never depend on wall-clock
// timezone.
package renewal

import (
	"sort"
	"time"
)

// UrgentWindowDays is the dashboard lookahead: a date is urgent when it falls
// today, tomorrow, or the day after (0 <= daysLeft < 3).
const UrgentWindowDays = 3

// Date builds a UTC midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths adds n calendar months, clamping the day-of-month to the last
// valid day of the resulting month: Jan 31 + 1 month is Feb 28 (29 in leap
// years), never Mar 3. The day is always taken from the input date, so
// repeated single-step additions and one multi-step addition can differ;
// callers that build schedules must always recompute from the anchor date.
// n may be negative.
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.UTC().Date()
	anchor := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(anchor.Year(), anchor.Month()); day > last {
		day = last
	}
	return time.Date(anchor.Year(), anchor.Month(), day, 0, 0, 0, 0, time.UTC)
}

// ComputeExpiry derives the contract end date from the purchase date and the
// fixed duration in months.
func ComputeExpiry(purchased time.Time, durationMonths int) time.Time {
	return AddMonths(purchased, durationMonths)
}

// NextDueOnOrAfter returns the first renewal due date that is >= asOf.
// The schedule starts at purchased + interval and steps by interval, each
// step recomputed from the purchase date so month-end clamping never drifts.
// Returns false when intervalMonths <= 0 (no recurrence).
func NextDueOnOrAfter(purchased time.Time, intervalMonths int, asOf time.Time) (time.Time, bool) {
	if intervalMonths <= 0 {
		return time.Time{}, false
	}
	today := midnight(asOf)
	for k := 1; ; k++ {
		due := AddMonths(purchased, intervalMonths*k)
		if !due.Before(today) {
			return due, true
		}
	}
}

// DaysLeft is the whole-day distance from asOf to target, both truncated to
// UTC midnight. Negative when target is already past.
func DaysLeft(target, asOf time.Time) int {
	return int(midnight(target).Sub(midnight(asOf)) / (24 * time.Hour))
}

// Urgent reports whether daysLeft falls inside the dashboard window.
func Urgent(daysLeft int) bool {
	return daysLeft >= 0 && daysLeft < UrgentWindowDays
}

// Record is the read-only slice of a sale the calendar needs.
type Record struct {
	SaleID         uint
	Channel        string
	Product        string
	Customer       string
	Email          string
	Purchased      time.Time
	DurationMonths int
	RenewMonths    int
	// Expired overrides the derived expiry when set.
	Expired *time.Time
}

// ExpiryOf resolves the record's end date: the explicit override when
// present, otherwise purchased + duration. False when neither is known.
func ExpiryOf(rec Record) (time.Time, bool) {
	if rec.Expired != nil {
		return midnight(*rec.Expired), true
	}
	if rec.DurationMonths > 0 {
		return ComputeExpiry(rec.Purchased, rec.DurationMonths), true
	}
	return time.Time{}, false
}

// Alert is one dashboard row: the record plus the date it is urgent about.
type Alert struct {
	Record
	Target   time.Time
	DaysLeft int
}

func sortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].DaysLeft != alerts[j].DaysLeft {
			return alerts[i].DaysLeft < alerts[j].DaysLeft
		}
		return alerts[i].Target.Format("2006-01-02") < alerts[j].Target.Format("2006-01-02")
	})
}

// SelectExpiringSoon returns the records whose final expiry falls inside the
// urgent window, ordered soonest first.
func SelectExpiringSoon(records []Record, asOf time.Time) []Alert {
	alerts := make([]Alert, 0)
	for _, rec := range records {
		expiry, ok := ExpiryOf(rec)
		if !ok {
			continue
		}
		dl := DaysLeft(expiry, asOf)
		if !Urgent(dl) {
			continue
		}
		alerts = append(alerts, Alert{Record: rec, Target: expiry, DaysLeft: dl})
	}
	sortAlerts(alerts)
	return alerts
}

// SelectNeedsRenewal returns the records whose next intermediate renewal due
// date falls inside the urgent window. A record already listed by
// SelectExpiringSoon is skipped outright: the final expiry alert wins and the
// dashboard never double-reports one sale. Due dates past the last renewable
// cutoff (expiry minus one interval) are also skipped, since renewing there
// would extend past the contract.
func SelectNeedsRenewal(records []Record, asOf time.Time) []Alert {
	type key struct {
		channel string
		id      uint
	}
	expiring := make(map[key]struct{})
	for _, a := range SelectExpiringSoon(records, asOf) {
		expiring[key{a.Channel, a.SaleID}] = struct{}{}
	}

	alerts := make([]Alert, 0)
	for _, rec := range records {
		if rec.RenewMonths <= 0 {
			continue
		}
		if rec.DurationMonths > 0 && rec.RenewMonths >= rec.DurationMonths {
			continue
		}
		if _, dup := expiring[key{rec.Channel, rec.SaleID}]; dup {
			continue
		}
		due, ok := NextDueOnOrAfter(rec.Purchased, rec.RenewMonths, asOf)
		if !ok {
			continue
		}
		if expiry, known := ExpiryOf(rec); known {
			if lastCutoff := AddMonths(expiry, -rec.RenewMonths); due.After(lastCutoff) {
				continue
			}
		}
		if due.Before(midnight(rec.Purchased)) {
			continue
		}
		dl := DaysLeft(due, asOf)
		if !Urgent(dl) {
			continue
		}
		alerts = append(alerts, Alert{Record: rec, Target: due, DaysLeft: dl})
	}
	sortAlerts(alerts)
	return alerts
}
