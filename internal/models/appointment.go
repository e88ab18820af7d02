package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppointmentStatus tracks where an appointment is in its lifecycle.
// "canceled" and "completed" are terminal.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusUpcoming  AppointmentStatus = "upcoming"
	StatusPostponed AppointmentStatus = "postponed"
	StatusCanceled  AppointmentStatus = "canceled"
	StatusCompleted AppointmentStatus = "completed"
)

// AppointmentDuration is the chosen length in minutes, as the enum string the
// clients send. Valid values: "15", "30", "45", "60". Default "30".
type AppointmentDuration string

const DefaultAppointmentDuration AppointmentDuration = "30"

// ConsultationType mirrors ScheduleLocation but uses the lowercase wire values
// the booking clients send.
type ConsultationType string

const (
	ConsultationOnline ConsultationType = "online"
	ConsultationOnSite ConsultationType = "on-site"
)

// Review is authored by a patient after an appointment. Append-only.
type Review struct {
	Rating    int       `bson:"rating" json:"rating"` // 1..5
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	User      string    `bson:"user" json:"user"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Appointment is one booking between a patient and a specialist. The end time
// is derived from Time + AppointmentDuration on every read and never stored.
type Appointment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`

	Title              string              `bson:"title,omitempty" json:"title,omitempty"`
	Day                time.Time           `bson:"day" json:"day"`
	Time               string              `bson:"time" json:"time"` // "HH:mm"
	Status             AppointmentStatus   `bson:"status" json:"status"`
	ConsultationReason string              `bson:"consultation_reason" json:"consultationReason"`
	Patient            string              `bson:"patient,omitempty" json:"patient,omitempty"`
	Doctor             string              `bson:"doctor" json:"doctor"`
	Duration           AppointmentDuration `bson:"appointment_duration" json:"appointmentDuration"`
	IsFirstVisit       bool                `bson:"is_first_visit" json:"isFirstVisit"`
	IsTakingMeds       bool                `bson:"is_taking_meds" json:"isTakingMeds"`
	HasAllergy         bool                `bson:"has_allergy" json:"hasAllergy"`
	HasDisability      bool                `bson:"has_disability" json:"hasDisability"`
	FocusArea          string              `bson:"focus_area,omitempty" json:"focusArea,omitempty"`
	Uploads            string              `bson:"uploads,omitempty" json:"uploads,omitempty"`
	ConsultationType   ConsultationType    `bson:"consultation_type" json:"consultationType"`
	SpecialistNote     string              `bson:"specialist_note,omitempty" json:"specialistNote,omitempty"`
	Reviews            []Review            `bson:"reviews" json:"reviews"`
	PatientSex         string              `bson:"patient_sex,omitempty" json:"patientSex,omitempty"`
	PatientDateOfBirth *time.Time          `bson:"patient_date_of_birth,omitempty" json:"patientDateOfBirth,omitempty"`
}

// ValidDuration reports whether d is one of the allowed duration values.
func ValidDuration(d AppointmentDuration) bool {
	switch d {
	case "15", "30", "45", "60":
		return true
	}
	return false
}

// Minutes returns the duration as an int. Callers must have validated d.
func (d AppointmentDuration) Minutes() int {
	switch d {
	case "15":
		return 15
	case "45":
		return 45
	case "60":
		return 60
	default:
		return 30
	}
}
