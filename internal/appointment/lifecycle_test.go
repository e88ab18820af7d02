package appointment

import (
	"errors"
	"testing"

	"github.com/checkme-health/checkme-backend/internal/models"
)

func TestTransitionAllowed(t *testing.T) {
	tests := []struct {
		from   models.AppointmentStatus
		action Action
		want   models.AppointmentStatus
	}{
		{models.StatusPending, ActionApprove, models.StatusUpcoming},
		{models.StatusPostponed, ActionApprove, models.StatusUpcoming},

		{models.StatusPending, ActionReschedule, models.StatusPostponed},
		{models.StatusUpcoming, ActionReschedule, models.StatusPostponed},
		{models.StatusPostponed, ActionReschedule, models.StatusPostponed},

		{models.StatusPending, ActionCancel, models.StatusCanceled},
		{models.StatusUpcoming, ActionCancel, models.StatusCanceled},
		{models.StatusPostponed, ActionCancel, models.StatusCanceled},
		{models.StatusCanceled, ActionCancel, models.StatusCanceled},

		{models.StatusUpcoming, ActionComplete, models.StatusCompleted},
	}

	for _, tt := range tests {
		got, err := Transition(tt.from, tt.action)
		if err != nil {
			t.Errorf("Transition(%s, %s) unexpected error: %v", tt.from, tt.action, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Transition(%s, %s) = %s, want %s", tt.from, tt.action, got, tt.want)
		}
	}
}

func TestTransitionRejected(t *testing.T) {
	tests := []struct {
		from   models.AppointmentStatus
		action Action
	}{
		{models.StatusCanceled, ActionApprove},
		{models.StatusCanceled, ActionReschedule},
		{models.StatusCanceled, ActionComplete},

		{models.StatusCompleted, ActionApprove},
		{models.StatusCompleted, ActionReschedule},
		{models.StatusCompleted, ActionCancel},
		{models.StatusCompleted, ActionComplete},

		{models.StatusUpcoming, ActionApprove},
		{models.StatusPending, ActionComplete},
		{models.StatusPostponed, ActionComplete},
	}

	for _, tt := range tests {
		if _, err := Transition(tt.from, tt.action); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Transition(%s, %s) = %v, want ErrInvalidTransition", tt.from, tt.action, err)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[models.AppointmentStatus]bool{
		models.StatusPending:   false,
		models.StatusUpcoming:  false,
		models.StatusPostponed: false,
		models.StatusCanceled:  true,
		models.StatusCompleted: true,
	}
	for status, want := range terminal {
		if got := IsTerminal(status); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, want)
		}
	}
}
