package appointment

import (
	"testing"

	"github.com/checkme-health/checkme-backend/internal/models"
)

func TestEndTime(t *testing.T) {
	tests := []struct {
		start       string
		duration    models.AppointmentDuration
		want        string
		wantNextDay bool
	}{
		{"09:00", "30", "09:30", false},
		{"09:00", "15", "09:15", false},
		{"09:45", "45", "10:30", false},
		{"13:30", "60", "14:30", false},
		{"23:30", "30", "00:00", true},
		{"23:50", "30", "00:20", true},
		{"23:00", "60", "00:00", true},
		{"00:00", "15", "00:15", false},
	}

	for _, tt := range tests {
		got, nextDay, err := EndTime(tt.start, tt.duration)
		if err != nil {
			t.Errorf("EndTime(%q, %q) unexpected error: %v", tt.start, tt.duration, err)
			continue
		}
		if got != tt.want || nextDay != tt.wantNextDay {
			t.Errorf("EndTime(%q, %q) = (%q, %v), want (%q, %v)",
				tt.start, tt.duration, got, nextDay, tt.want, tt.wantNextDay)
		}
	}
}

func TestEndTimeRejectsMalformedStart(t *testing.T) {
	for _, start := range []string{"", "9:00", "25:00", "noon"} {
		if _, _, err := EndTime(start, "30"); err == nil {
			t.Errorf("EndTime(%q, 30) expected error", start)
		}
	}
}

func TestDurationMinutes(t *testing.T) {
	tests := []struct {
		d    models.AppointmentDuration
		want int
	}{
		{"15", 15},
		{"30", 30},
		{"45", 45},
		{"60", 60},
	}
	for _, tt := range tests {
		if got := tt.d.Minutes(); got != tt.want {
			t.Errorf("Minutes(%q) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestValidDuration(t *testing.T) {
	for _, d := range []models.AppointmentDuration{"15", "30", "45", "60"} {
		if !models.ValidDuration(d) {
			t.Errorf("ValidDuration(%q) = false", d)
		}
	}
	for _, d := range []models.AppointmentDuration{"", "20", "90", "thirty"} {
		if models.ValidDuration(d) {
			t.Errorf("ValidDuration(%q) = true", d)
		}
	}
}
