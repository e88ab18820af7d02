package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/middleware"
	"github.com/checkme-health/checkme-backend/internal/models"
	"github.com/checkme-health/checkme-backend/internal/schedule"
	"github.com/checkme-health/checkme-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const scheduleCollection = "schedules"

// CreateScheduleRequest carries a new schedule definition. The owning doctor
// is always the authenticated caller, never taken from the body.
type CreateScheduleRequest struct {
	Title            string                  `json:"title"`
	DaysOfWeek       models.WeekAvailability `json:"daysOfWeek"`
	Timezone         string                  `json:"timezone"`
	AppointmentTypes []string                `json:"appointmentTypes"`
	Notes            string                  `json:"notes"`
	Location         models.ScheduleLocation `json:"location"`
}

// CreateSchedule persists a new schedule owned by the calling specialist.
func CreateSchedule(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	specialist, err := services.GetSpecialist(ident.ID)
	if err != nil || specialist == nil {
		writeError(w, http.StatusNotFound, "There is no specialist with that ID")
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Location != models.LocationOnline && req.Location != models.LocationOnSite {
		writeError(w, http.StatusBadRequest, "Location must be Online or On-site")
		return
	}
	if err := schedule.ValidateWeek(&req.DaysOfWeek); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appointmentTypes := req.AppointmentTypes
	if len(appointmentTypes) == 0 {
		appointmentTypes = []string{"Consultation"}
	}
	for _, at := range appointmentTypes {
		if !allowedAppointmentType(at) {
			writeError(w, http.StatusBadRequest, "Unknown appointment type: "+at)
			return
		}
	}

	now := time.Now().UTC()
	doc := models.Schedule{
		CreatedAt:        now,
		UpdatedAt:        now,
		Doctor:           ident.ID,
		Title:            req.Title,
		DaysOfWeek:       req.DaysOfWeek,
		Timezone:         req.Timezone,
		AppointmentTypes: appointmentTypes,
		Notes:            req.Notes,
		Location:         req.Location,
		IsActive:         true,
		Overrides:        []models.Override{},
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := database.DB.Collection(scheduleCollection).InsertOne(ctx, doc)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"schedule": doc,
	})
}

func allowedAppointmentType(t string) bool {
	for _, allowed := range models.AllowedAppointmentTypes {
		if t == allowed {
			return true
		}
	}
	return false
}

// GetSchedule returns one schedule by id.
func GetSchedule(w http.ResponseWriter, r *http.Request) {
	objectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var doc models.Schedule
	err = database.DB.Collection(scheduleCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			writeError(w, http.StatusNotFound, "Schedule not found")
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"schedule": doc,
	})
}

// GetMySchedules lists the calling specialist's schedules.
func GetMySchedules(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)
	listSchedulesForDoctor(w, r, ident.ID)
}

// GetDoctorSchedules lists a specialist's schedules from the public route,
// used by patients browsing availability.
func GetDoctorSchedules(w http.ResponseWriter, r *http.Request) {
	listSchedulesForDoctor(w, r, chi.URLParam(r, "specialistID"))
}

func listSchedulesForDoctor(w http.ResponseWriter, r *http.Request, doctorID string) {
	specialist, err := services.GetSpecialist(doctorID)
	if err != nil || specialist == nil {
		writeError(w, http.StatusNotFound, "There is no specialist with that ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cur, err := database.DB.Collection(scheduleCollection).Find(ctx, bson.M{"doctor": doctorID})
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer cur.Close(ctx)

	schedules := []models.Schedule{}
	if err := cur.All(ctx, &schedules); err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"results":   len(schedules),
		"schedules": schedules,
	})
}

// UpdateScheduleRequest is a partial update; nil fields are left untouched.
type UpdateScheduleRequest struct {
	Title            *string                  `json:"title"`
	DaysOfWeek       *models.WeekAvailability `json:"daysOfWeek"`
	Timezone         *string                  `json:"timezone"`
	AppointmentTypes *[]string                `json:"appointmentTypes"`
	Notes            *string                  `json:"notes"`
	Location         *models.ScheduleLocation `json:"location"`
	IsActive         *bool                    `json:"isActive"`
}

// UpdateSchedule merges provided fields into an owned schedule and
// re-validates every interval and override before persisting.
func UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	objectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	col := database.DB.Collection(scheduleCollection)

	var doc models.Schedule
	if err := col.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			writeError(w, http.StatusNotFound, "Schedule not found")
			return
		}
		writeInternalError(w, err)
		return
	}

	if doc.Doctor != ident.ID && ident.Role != services.RoleAdmin {
		writeError(w, http.StatusForbidden, "You can only update your own schedules")
		return
	}

	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.DaysOfWeek != nil {
		doc.DaysOfWeek = *req.DaysOfWeek
	}
	if req.Timezone != nil {
		doc.Timezone = *req.Timezone
	}
	if req.AppointmentTypes != nil {
		for _, at := range *req.AppointmentTypes {
			if !allowedAppointmentType(at) {
				writeError(w, http.StatusBadRequest, "Unknown appointment type: "+at)
				return
			}
		}
		doc.AppointmentTypes = *req.AppointmentTypes
	}
	if req.Notes != nil {
		doc.Notes = *req.Notes
	}
	if req.Location != nil {
		if *req.Location != models.LocationOnline && *req.Location != models.LocationOnSite {
			writeError(w, http.StatusBadRequest, "Location must be Online or On-site")
			return
		}
		doc.Location = *req.Location
	}
	if req.IsActive != nil {
		doc.IsActive = *req.IsActive
	}

	if err := schedule.ValidateSchedule(&doc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc.UpdatedAt = time.Now().UTC()
	if _, err := col.ReplaceOne(ctx, bson.M{"_id": objectID}, doc); err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"schedule": doc,
	})
}

// DeleteSchedule hard-deletes a schedule. No cascade to appointments.
func DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	objectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	filter := bson.M{"_id": objectID}
	if ident.Role != services.RoleAdmin {
		filter["doctor"] = ident.ID
	}

	res, err := database.DB.Collection(scheduleCollection).DeleteOne(ctx, filter)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if res.DeletedCount == 0 {
		writeError(w, http.StatusNotFound, "Schedule not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Schedule deleted",
	})
}

// AddOverrideRequest appends a date-specific exception to a schedule.
type AddOverrideRequest struct {
	Date      string                  `json:"date"` // "2006-01-02"
	StartTime string                  `json:"startTime"`
	EndTime   string                  `json:"endTime"`
	TimeZone  string                  `json:"timeZone"`
	Location  models.ScheduleLocation `json:"location"`
	Reason    string                  `json:"reason"`
}

// AddOverride appends an override entry to a schedule's override list.
func AddOverride(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	objectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "scheduleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	var req AddOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	if req.Location != models.LocationOnline && req.Location != models.LocationOnSite {
		writeError(w, http.StatusBadRequest, "Location must be Online or On-site")
		return
	}

	override := models.Override{
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		TimeZone:  req.TimeZone,
		Location:  req.Location,
		Reason:    req.Reason,
		IsActive:  true,
	}
	if err := schedule.ValidateOverride(&override); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	col := database.DB.Collection(scheduleCollection)

	filter := bson.M{"_id": objectID}
	if ident.Role != services.RoleAdmin {
		filter["doctor"] = ident.ID
	}

	update := bson.M{
		"$push": bson.M{"overrides": override},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc models.Schedule
	if err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			writeError(w, http.StatusNotFound, "Schedule not found")
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"schedule": doc,
	})
}

// MarkScheduleDefault makes the target the specialist's only default: the
// flag is cleared across the owner's other schedules first, then set on the
// target, so at most one default survives either step.
func MarkScheduleDefault(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	objectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	col := database.DB.Collection(scheduleCollection)

	var doc models.Schedule
	if err := col.FindOne(ctx, bson.M{"_id": objectID, "doctor": ident.ID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			writeError(w, http.StatusNotFound, "Schedule not found")
			return
		}
		writeInternalError(w, err)
		return
	}

	now := time.Now().UTC()
	_, err = col.UpdateMany(ctx,
		bson.M{"doctor": ident.ID, "_id": bson.M{"$ne": objectID}},
		bson.M{"$set": bson.M{"is_default": false, "updated_at": now}},
	)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = col.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"is_default": true, "updated_at": now}},
		opts,
	).Decode(&doc)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"schedule": doc,
	})
}

// GetDoctorAvailability resolves a specialist's schedule into the free
// intervals and bookable slot starts for one date: weekday pattern, replaced
// by active overrides for that date, minus already-booked appointments.
func GetDoctorAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "specialistID")

	specialist, err := services.GetSpecialist(doctorID)
	if err != nil || specialist == nil {
		writeError(w, http.StatusNotFound, "There is no specialist with that ID")
		return
	}

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	duration := models.AppointmentDuration(r.URL.Query().Get("duration"))
	if duration == "" {
		duration = models.DefaultAppointmentDuration
	}
	if !models.ValidDuration(duration) {
		writeError(w, http.StatusBadRequest, "Duration must be one of 15, 30, 45, 60")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sched, err := pickScheduleForDoctor(ctx, doctorID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if sched == nil {
		writeError(w, http.StatusNotFound, "No schedule found for this specialist")
		return
	}

	booked, err := bookedSlotsForDoctor(ctx, doctorID, date)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	free, err := schedule.Resolve(sched, date, booked)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"date":     date.Format("2006-01-02"),
		"free":     free,
		"slots":    schedule.SlotStarts(free, duration),
		"schedule": sched.ID.Hex(),
	})
}

// pickScheduleForDoctor prefers the active default schedule, falling back to
// the most recently created active one.
func pickScheduleForDoctor(ctx context.Context, doctorID string) (*models.Schedule, error) {
	col := database.DB.Collection(scheduleCollection)

	opts := options.Find().
		SetSort(bson.D{{Key: "is_default", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(1)

	cur, err := col.Find(ctx, bson.M{"doctor": doctorID, "is_active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var schedules []models.Schedule
	if err := cur.All(ctx, &schedules); err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return nil, nil
	}
	return &schedules[0], nil
}

// bookedSlotsForDoctor lists the doctor's non-canceled appointments on a date.
func bookedSlotsForDoctor(ctx context.Context, doctorID string, date time.Time) ([]schedule.Booking, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	cur, err := database.DB.Collection(appointmentCollection).Find(ctx, bson.M{
		"doctor": doctorID,
		"day":    bson.M{"$gte": dayStart, "$lt": dayEnd},
		"status": bson.M{"$ne": models.StatusCanceled},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var appointments []models.Appointment
	if err := cur.All(ctx, &appointments); err != nil {
		return nil, err
	}

	booked := make([]schedule.Booking, 0, len(appointments))
	for _, a := range appointments {
		booked = append(booked, schedule.Booking{Time: a.Time, Duration: a.Duration})
	}
	return booked, nil
}
