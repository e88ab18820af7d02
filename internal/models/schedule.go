package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleLocation is where the specialist receives patients.
// Valid values: "Online", "On-site".
type ScheduleLocation string

const (
	LocationOnline ScheduleLocation = "Online"
	LocationOnSite ScheduleLocation = "On-site"
)

// AppointmentType labels the kinds of appointments a schedule accepts.
var AllowedAppointmentTypes = []string{"Consultation", "Follow-up", "Emergency", "Check-up"}

// Interval is a single bookable window within one weekday, "HH:mm" bounds.
type Interval struct {
	StartTime string `bson:"start_time" json:"startTime"`
	EndTime   string `bson:"end_time" json:"endTime"`
}

// WeekAvailability is the recurring weekly pattern. A fixed 7-key shape (not a
// list) so weekday lookup is direct and the document is self-describing; each
// day holds an ordered interval list to support split shifts.
type WeekAvailability struct {
	Monday    []Interval `bson:"monday" json:"Monday"`
	Tuesday   []Interval `bson:"tuesday" json:"Tuesday"`
	Wednesday []Interval `bson:"wednesday" json:"Wednesday"`
	Thursday  []Interval `bson:"thursday" json:"Thursday"`
	Friday    []Interval `bson:"friday" json:"Friday"`
	Saturday  []Interval `bson:"saturday" json:"Saturday"`
	Sunday    []Interval `bson:"sunday" json:"Sunday"`
}

// Day returns the interval list for a weekday.
func (w *WeekAvailability) Day(d time.Weekday) []Interval {
	switch d {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	default:
		return w.Sunday
	}
}

// Days returns weekday name -> intervals, for validation sweeps.
func (w *WeekAvailability) Days() map[string][]Interval {
	return map[string][]Interval{
		"Monday":    w.Monday,
		"Tuesday":   w.Tuesday,
		"Wednesday": w.Wednesday,
		"Thursday":  w.Thursday,
		"Friday":    w.Friday,
		"Saturday":  w.Saturday,
		"Sunday":    w.Sunday,
	}
}

// Override is a date-specific exception to the weekly pattern. When active and
// matching a date, overrides replace that day's recurring intervals.
type Override struct {
	Date      time.Time        `bson:"date" json:"date"`
	StartTime string           `bson:"start_time" json:"startTime"`
	EndTime   string           `bson:"end_time" json:"endTime"`
	TimeZone  string           `bson:"time_zone" json:"timeZone"`
	Location  ScheduleLocation `bson:"location" json:"location"`
	Reason    string           `bson:"reason,omitempty" json:"reason,omitempty"`
	IsActive  bool             `bson:"is_active" json:"isActive"`
}

// Schedule is a specialist's bookable-time policy: the recurring weekly
// pattern plus date-specific overrides. A specialist may own several
// schedules; at most one is the default.
type Schedule struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`

	Doctor           string           `bson:"doctor" json:"doctor"`
	Title            string           `bson:"title,omitempty" json:"title,omitempty"`
	DaysOfWeek       WeekAvailability `bson:"days_of_week" json:"daysOfWeek"`
	Timezone         string           `bson:"timezone,omitempty" json:"timezone,omitempty"`
	AppointmentTypes []string         `bson:"appointment_types" json:"appointmentTypes"`
	Notes            string           `bson:"notes,omitempty" json:"notes,omitempty"`
	Location         ScheduleLocation `bson:"location" json:"location"`
	IsActive         bool             `bson:"is_active" json:"isActive"`
	IsDefault        bool             `bson:"is_default" json:"isDefault"`
	Overrides        []Override       `bson:"overrides" json:"overrides"`
}

// DefaultSchedule is auto-provisioned when a specialist account is approved:
// Monday-Friday 09:00-16:00, Online.
func DefaultSchedule(doctorID string) Schedule {
	workday := []Interval{{StartTime: "09:00", EndTime: "16:00"}}
	now := time.Now().UTC()
	return Schedule{
		CreatedAt: now,
		UpdatedAt: now,
		Doctor:    doctorID,
		Title:     "Working Hours",
		DaysOfWeek: WeekAvailability{
			Monday:    workday,
			Tuesday:   workday,
			Wednesday: workday,
			Thursday:  workday,
			Friday:    workday,
			Saturday:  []Interval{},
			Sunday:    []Interval{},
		},
		Timezone:         "Africa/Douala",
		AppointmentTypes: []string{"Consultation", "Follow-up"},
		Notes:            "This is my default availability",
		Location:         LocationOnline,
		IsActive:         true,
		IsDefault:        true,
		Overrides:        []Override{},
	}
}
