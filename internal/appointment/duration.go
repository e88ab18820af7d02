// Package appointment holds the appointment lifecycle state machine and the
// end-time derivation.
package appointment

import (
	"github.com/checkme-health/checkme-backend/internal/models"
	"github.com/checkme-health/checkme-backend/internal/schedule"
)

// EndTime derives the display end time from the start time and the chosen
// duration. The result wraps modulo 24h; endsNextDay flags a midnight
// crossing ("23:50" + 30 -> "00:20", endsNextDay=true) so clients never see
// an invalid clock value. Never persisted, recomputed on every read.
func EndTime(start string, duration models.AppointmentDuration) (end string, endsNextDay bool, err error) {
	at, err := schedule.ParseClock(start)
	if err != nil {
		return "", false, err
	}
	total := at + duration.Minutes()
	return schedule.FormatClock(total % (24 * 60)), total >= 24*60, nil
}
