package attendance

import (
	"math"
	"time"
)

// DateOf returns the calendar day of t, in t's location, in API format.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// FindByDate returns the record for the given calendar day, if any.
func FindByDate(history []Record, date string) (Record, bool) {
	for _, rec := range history {
		if rec.Date == date {
			return rec, true
		}
	}
	return Record{}, false
}

// TodayRecord returns the record matching now's calendar day.
func TodayRecord(history []Record, now time.Time) (Record, bool) {
	return FindByDate(history, DateOf(now))
}

// EligibilityAt derives today's available actions from the history.
func EligibilityAt(history []Record, now time.Time) Eligibility {
	weekend := IsWeekend(now)
	today, ok := TodayRecord(history, now)
	return Eligibility{
		IsWeekend:       weekend,
		CanCheckIn:      !weekend && !ok,
		CanCheckOut:     !weekend && ok && today.HasCheckIn() && !today.HasCheckOut(),
		CanRequestLeave: !weekend && !ok,
	}
}

// DayStateAt places today's card in its state machine:
//	no_record -> checked_in -> checked_out
//	no_record -> excused | sick
//	any -> inactive on weekends
func DayStateAt(history []Record, now time.Time) string {
	if IsWeekend(now) {
		return DayInactive
	}
	today, ok := TodayRecord(history, now)
	if !ok {
		return DayNoRecord
	}
	switch today.Status {
	case StatusExcused:
		return DayExcused
	case StatusSick:
		return DaySick
	case StatusAbsent:
		if !today.HasCheckIn() {
			return DayAbsent
		}
	}
	if today.HasCheckIn() && !today.HasCheckOut() {
		return DayCheckedIn
	}
	return DayCheckedOut
}

// ComputeStats counts records per status.
func ComputeStats(history []Record) Stats {
	var st Stats
	for _, rec := range history {
		switch rec.Status {
		case StatusPresent:
			st.Present++
		case StatusExcused:
			st.Excused++
		case StatusSick:
			st.Sick++
		case StatusAbsent:
			st.Absent++
		}
	}
	if total := len(history); total > 0 {
		st.PresentPercent = int(math.Round(float64(st.Present) / float64(total) * 100))
	}
	return st
}
