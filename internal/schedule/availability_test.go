package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/checkme-health/checkme-backend/internal/models"
)

func iv(start, end string) models.Interval {
	return models.Interval{StartTime: start, EndTime: end}
}

func TestValidateDay(t *testing.T) {
	tests := []struct {
		name      string
		intervals []models.Interval
		wantErr   error
	}{
		{"empty day", nil, nil},
		{"single interval", []models.Interval{iv("09:00", "16:00")}, nil},
		{"split shift", []models.Interval{iv("09:00", "12:00"), iv("13:00", "17:00")}, nil},
		{"unsorted but valid", []models.Interval{iv("13:00", "17:00"), iv("09:00", "12:00")}, nil},
		{"adjacent intervals touch", []models.Interval{iv("09:00", "12:00"), iv("12:00", "15:00")}, nil},
		{"start equals end", []models.Interval{iv("09:00", "09:00")}, ErrInvalidInterval},
		{"start after end", []models.Interval{iv("16:00", "09:00")}, ErrInvalidInterval},
		{"overlap", []models.Interval{iv("09:00", "12:00"), iv("11:00", "14:00")}, ErrOverlappingIntervals},
		{"contained overlap", []models.Interval{iv("09:00", "17:00"), iv("10:00", "11:00")}, ErrOverlappingIntervals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDay("Monday", tt.intervals)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDayRejectsMalformedClock(t *testing.T) {
	if err := ValidateDay("Monday", []models.Interval{iv("9am", "16:00")}); err == nil {
		t.Fatal("expected error for malformed start time")
	}
}

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func baseSchedule() *models.Schedule {
	s := models.DefaultSchedule("doc-1")
	return &s
}

func TestResolveWeekday(t *testing.T) {
	free, err := Resolve(baseSchedule(), monday, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.Interval{iv("09:00", "16:00")}
	assertIntervals(t, free, want)
}

func TestResolveEmptyWeekendDay(t *testing.T) {
	sunday := monday.AddDate(0, 0, 6)
	free, err := Resolve(baseSchedule(), sunday, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(free) != 0 {
		t.Fatalf("expected no availability on Sunday, got %v", free)
	}
}

func TestResolveInactiveSchedule(t *testing.T) {
	s := baseSchedule()
	s.IsActive = false
	free, err := Resolve(s, monday, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(free) != 0 {
		t.Fatalf("inactive schedule must have no availability, got %v", free)
	}
}

func TestResolveOverrideReplacesWeekday(t *testing.T) {
	s := baseSchedule()
	s.Overrides = []models.Override{{
		Date:      monday,
		StartTime: "14:00",
		EndTime:   "18:00",
		IsActive:  true,
	}}

	free, err := Resolve(s, monday, nil)
	if err != nil {
		t.Fatal(err)
	}
	// The override replaces the recurring 09:00-16:00 entirely.
	assertIntervals(t, free, []models.Interval{iv("14:00", "18:00")})
}

func TestResolveInactiveOverrideIgnored(t *testing.T) {
	s := baseSchedule()
	s.Overrides = []models.Override{{
		Date:      monday,
		StartTime: "14:00",
		EndTime:   "18:00",
		IsActive:  false,
	}}

	free, err := Resolve(s, monday, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertIntervals(t, free, []models.Interval{iv("09:00", "16:00")})
}

func TestResolveOverrideOtherDateIgnored(t *testing.T) {
	s := baseSchedule()
	s.Overrides = []models.Override{{
		Date:      monday.AddDate(0, 0, 1),
		StartTime: "14:00",
		EndTime:   "18:00",
		IsActive:  true,
	}}

	free, err := Resolve(s, monday, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertIntervals(t, free, []models.Interval{iv("09:00", "16:00")})
}

func TestResolveMultipleOverridesSameDate(t *testing.T) {
	s := baseSchedule()
	s.Overrides = []models.Override{
		{Date: monday, StartTime: "17:00", EndTime: "19:00", IsActive: true},
		{Date: monday, StartTime: "08:00", EndTime: "10:00", IsActive: true},
	}

	free, err := Resolve(s, monday, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertIntervals(t, free, []models.Interval{iv("08:00", "10:00"), iv("17:00", "19:00")})
}

func TestResolveSubtractsBookings(t *testing.T) {
	tests := []struct {
		name   string
		booked []Booking
		want   []models.Interval
	}{
		{
			"booking in the middle splits the window",
			[]Booking{{Time: "10:00", Duration: "30"}},
			[]models.Interval{iv("09:00", "10:00"), iv("10:30", "16:00")},
		},
		{
			"booking at the start trims the front",
			[]Booking{{Time: "09:00", Duration: "60"}},
			[]models.Interval{iv("10:00", "16:00")},
		},
		{
			"back-to-back bookings",
			[]Booking{
				{Time: "09:00", Duration: "30"},
				{Time: "09:30", Duration: "30"},
			},
			[]models.Interval{iv("10:00", "16:00")},
		},
		{
			"booking outside the window changes nothing",
			[]Booking{{Time: "07:00", Duration: "60"}},
			[]models.Interval{iv("09:00", "16:00")},
		},
		{
			"malformed booking time is skipped",
			[]Booking{{Time: "morning", Duration: "30"}},
			[]models.Interval{iv("09:00", "16:00")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free, err := Resolve(baseSchedule(), monday, tt.booked)
			if err != nil {
				t.Fatal(err)
			}
			assertIntervals(t, free, tt.want)
		})
	}
}

func TestResolveFullyBookedDay(t *testing.T) {
	free, err := Resolve(baseSchedule(), monday, []Booking{{Time: "09:00", Duration: "60"},
		{Time: "10:00", Duration: "60"}, {Time: "11:00", Duration: "60"},
		{Time: "12:00", Duration: "60"}, {Time: "13:00", Duration: "60"},
		{Time: "14:00", Duration: "60"}, {Time: "15:00", Duration: "60"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(free) != 0 {
		t.Fatalf("expected fully booked day, got %v", free)
	}
}

func TestSlotStarts(t *testing.T) {
	free := []models.Interval{iv("09:00", "10:30"), iv("14:00", "14:20")}

	got := SlotStarts(free, "30")
	want := []string{"09:00", "09:30", "10:00"}
	if len(got) != len(want) {
		t.Fatalf("SlotStarts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SlotStarts = %v, want %v", got, want)
		}
	}
}

func TestValidateSchedule(t *testing.T) {
	s := baseSchedule()
	if err := ValidateSchedule(s); err != nil {
		t.Fatalf("default schedule must validate: %v", err)
	}

	s.DaysOfWeek.Tuesday = []models.Interval{iv("12:00", "09:00")}
	if err := ValidateSchedule(s); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("got %v, want ErrInvalidInterval", err)
	}

	s = baseSchedule()
	s.Overrides = []models.Override{{Date: monday, StartTime: "18:00", EndTime: "14:00", IsActive: true}}
	if err := ValidateSchedule(s); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("got %v, want ErrInvalidInterval for bad override", err)
	}
}

func assertIntervals(t *testing.T, got, want []models.Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
