package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/checkme-health/checkme-backend/internal/models"
)

var (
	// ErrInvalidInterval means startTime is not strictly before endTime.
	ErrInvalidInterval = errors.New("start time must be before end time")
	// ErrOverlappingIntervals means two intervals within one day overlap.
	ErrOverlappingIntervals = errors.New("intervals within a day must not overlap")
)

// span is an interval in minutes since midnight, [Start, End).
type span struct {
	Start, End int
}

func intervalSpan(iv models.Interval) (span, error) {
	start, err := ParseClock(iv.StartTime)
	if err != nil {
		return span{}, err
	}
	end, err := ParseClock(iv.EndTime)
	if err != nil {
		return span{}, err
	}
	if start >= end {
		return span{}, ErrInvalidInterval
	}
	return span{Start: start, End: end}, nil
}

// ValidateDay checks every interval of one weekday: well-formed "HH:mm"
// bounds, start strictly before end, and no pairwise overlap.
func ValidateDay(day string, intervals []models.Interval) error {
	spans := make([]span, 0, len(intervals))
	for _, iv := range intervals {
		sp, err := intervalSpan(iv)
		if err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
		spans = append(spans, sp)
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].End {
			return fmt.Errorf("%s: %w", day, ErrOverlappingIntervals)
		}
	}
	return nil
}

// ValidateWeek validates all seven days of a weekly pattern.
func ValidateWeek(week *models.WeekAvailability) error {
	for day, intervals := range week.Days() {
		if err := ValidateDay(day, intervals); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOverride checks an override's time bounds.
func ValidateOverride(o *models.Override) error {
	_, err := intervalSpan(models.Interval{StartTime: o.StartTime, EndTime: o.EndTime})
	return err
}

// ValidateSchedule validates the weekly pattern and every override.
func ValidateSchedule(s *models.Schedule) error {
	if err := ValidateWeek(&s.DaysOfWeek); err != nil {
		return err
	}
	for i := range s.Overrides {
		if err := ValidateOverride(&s.Overrides[i]); err != nil {
			return err
		}
	}
	return nil
}

// sameDate compares calendar dates, ignoring the time-of-day component.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Booking is an already-booked slot to exclude from availability.
type Booking struct {
	Time     string // "HH:mm"
	Duration models.AppointmentDuration
}

// Resolve turns a schedule into the free intervals for one date:
// the date's weekday intervals, fully replaced by any active overrides whose
// date matches (several matching overrides contribute one interval each),
// minus the time occupied by existing bookings. An inactive schedule has no
// availability.
func Resolve(s *models.Schedule, date time.Time, booked []Booking) ([]models.Interval, error) {
	if !s.IsActive {
		return []models.Interval{}, nil
	}

	var free []span
	overridden := false
	for i := range s.Overrides {
		o := &s.Overrides[i]
		if !o.IsActive || !sameDate(o.Date, date) {
			continue
		}
		sp, err := intervalSpan(models.Interval{StartTime: o.StartTime, EndTime: o.EndTime})
		if err != nil {
			return nil, err
		}
		free = append(free, sp)
		overridden = true
	}

	if !overridden {
		for _, iv := range s.DaysOfWeek.Day(date.Weekday()) {
			sp, err := intervalSpan(iv)
			if err != nil {
				return nil, err
			}
			free = append(free, sp)
		}
	}

	sort.Slice(free, func(i, j int) bool { return free[i].Start < free[j].Start })

	for _, b := range booked {
		start, err := ParseClock(b.Time)
		if err != nil {
			continue // malformed legacy bookings don't block the whole day
		}
		free = subtract(free, span{Start: start, End: start + b.Duration.Minutes()})
	}

	out := make([]models.Interval, 0, len(free))
	for _, sp := range free {
		out = append(out, models.Interval{
			StartTime: FormatClock(sp.Start),
			EndTime:   FormatClock(sp.End),
		})
	}
	return out, nil
}

// subtract removes the busy span from each free span, splitting when the busy
// time falls in the middle.
func subtract(free []span, busy span) []span {
	out := make([]span, 0, len(free)+1)
	for _, f := range free {
		if busy.End <= f.Start || busy.Start >= f.End {
			out = append(out, f)
			continue
		}
		if busy.Start > f.Start {
			out = append(out, span{Start: f.Start, End: busy.Start})
		}
		if busy.End < f.End {
			out = append(out, span{Start: busy.End, End: f.End})
		}
	}
	return out
}

// SlotStarts enumerates the "HH:mm" start times inside the free intervals at
// which an appointment of the given duration still fits, stepping by the
// duration itself.
func SlotStarts(free []models.Interval, duration models.AppointmentDuration) []string {
	step := duration.Minutes()
	var starts []string
	for _, iv := range free {
		sp, err := intervalSpan(iv)
		if err != nil {
			continue
		}
		for at := sp.Start; at+step <= sp.End; at += step {
			starts = append(starts, FormatClock(at))
		}
	}
	return starts
}
