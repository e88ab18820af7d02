package appointment

import (
	"errors"
	"fmt"

	"github.com/checkme-health/checkme-backend/internal/models"
)

// Action is a lifecycle operation applied to an appointment.
type Action string

const (
	ActionApprove    Action = "approve"
	ActionReschedule Action = "reschedule"
	ActionCancel     Action = "cancel"
	ActionComplete   Action = "complete"
)

// ErrInvalidTransition is returned when an action is not legal from the
// appointment's current status (e.g. approving a canceled appointment).
var ErrInvalidTransition = errors.New("invalid status transition")

type transitionKey struct {
	from   models.AppointmentStatus
	action Action
}

// transitions is the full table of legal moves. Anything absent is rejected;
// "canceled" and "completed" are terminal except for the idempotent re-cancel.
var transitions = map[transitionKey]models.AppointmentStatus{
	{models.StatusPending, ActionApprove}:   models.StatusUpcoming,
	{models.StatusPostponed, ActionApprove}: models.StatusUpcoming,

	{models.StatusPending, ActionReschedule}:   models.StatusPostponed,
	{models.StatusUpcoming, ActionReschedule}:  models.StatusPostponed,
	{models.StatusPostponed, ActionReschedule}: models.StatusPostponed,

	{models.StatusPending, ActionCancel}:   models.StatusCanceled,
	{models.StatusUpcoming, ActionCancel}:  models.StatusCanceled,
	{models.StatusPostponed, ActionCancel}: models.StatusCanceled,
	// Canceling twice is a state-wise no-op.
	{models.StatusCanceled, ActionCancel}: models.StatusCanceled,

	{models.StatusUpcoming, ActionComplete}: models.StatusCompleted,
}

// Transition returns the status that results from applying action to an
// appointment currently in from, or ErrInvalidTransition.
func Transition(from models.AppointmentStatus, action Action) (models.AppointmentStatus, error) {
	to, ok := transitions[transitionKey{from, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a %s appointment", ErrInvalidTransition, action, from)
	}
	return to, nil
}

// IsTerminal reports whether no action can move the appointment forward.
func IsTerminal(s models.AppointmentStatus) bool {
	return s == models.StatusCanceled || s == models.StatusCompleted
}
