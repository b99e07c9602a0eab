package calendar

import "time"

// Window is the half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Duration() time.Duration {
	if !w.From.Before(w.To) {
		return 0
	}
	return w.To.Sub(w.From)
}

// Intersects reports whether [start, end) shares any instant with the window.
func (w Window) Intersects(start, end time.Time) bool {
	return start.Before(w.To) && end.After(w.From)
}

// Clip returns the part of [start, end) that falls inside the window.
func (w Window) Clip(start, end time.Time) time.Duration {
	if start.Before(w.From) {
		start = w.From
	}
	if end.After(w.To) {
		end = w.To
	}
	if !start.Before(end) {
		return 0
	}
	return end.Sub(start)
}

// StartOfDay returns local midnight of the day t falls on in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayWindow spans the calendar day of t in loc. Days around DST switches are 23 or 25 hours long.
func DayWindow(t time.Time, loc *time.Location) Window {
	start := StartOfDay(t, loc)
	return Window{From: start, To: time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, loc)}
}

// WallClockOffset is the local time of day of t in loc, as read on a wall clock.
// On days with a DST switch it differs from the time elapsed since midnight.
func WallClockOffset(t time.Time, loc *time.Location) time.Duration {
	local := t.In(loc)
	return time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
}

// AtOffset returns the instant whose wall clock reads offset on the day of day in loc.
func AtOffset(day time.Time, offset time.Duration, loc *time.Location) time.Time {
	local := day.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, int(offset), loc)
}

// HoursWindow spans [startHour, endHour) of the day of t in loc; endHour 24 is next midnight.
func HoursWindow(t time.Time, loc *time.Location, startHour, endHour int) Window {
	day := StartOfDay(t, loc)
	return Window{
		From: time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, loc),
		To:   time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, loc),
	}
}
