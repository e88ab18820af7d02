package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/checkme-health/checkme-backend/internal/appointment"
	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/middleware"
	"github.com/checkme-health/checkme-backend/internal/models"
	"github.com/checkme-health/checkme-backend/internal/schedule"
	"github.com/checkme-health/checkme-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const appointmentCollection = "appointments"

// AppointmentView is an appointment plus its derived display fields. The end
// time is recomputed on every read, never persisted.
type AppointmentView struct {
	models.Appointment
	EndTime     string `json:"endTime,omitempty"`
	EndsNextDay bool   `json:"endsNextDay,omitempty"`
}

func viewOf(a models.Appointment) AppointmentView {
	view := AppointmentView{Appointment: a}
	if end, nextDay, err := appointment.EndTime(a.Time, a.Duration); err == nil {
		view.EndTime = end
		view.EndsNextDay = nextDay
	}
	return view
}

func viewsOf(appointments []models.Appointment) []AppointmentView {
	views := make([]AppointmentView, 0, len(appointments))
	for _, a := range appointments {
		views = append(views, viewOf(a))
	}
	return views
}

// BookAppointmentRequest is a patient's booking. The patient reference is the
// authenticated caller.
type BookAppointmentRequest struct {
	Doctor             string                     `json:"doctor"`
	Title              string                     `json:"title"`
	Day                string                     `json:"day"` // "2006-01-02"
	Time               string                     `json:"time"`
	ConsultationReason string                     `json:"consultationReason"`
	Duration           models.AppointmentDuration `json:"appointmentDuration"`
	IsFirstVisit       *bool                      `json:"isFirstVisit"`
	IsTakingMeds       bool                       `json:"isTakingMeds"`
	HasAllergy         bool                       `json:"hasAllergy"`
	HasDisability      bool                       `json:"hasDisability"`
	FocusArea          string                     `json:"focusArea"`
	Uploads            string                     `json:"uploads"`
	ConsultationType   models.ConsultationType    `json:"consultationType"`
	PatientSex         string                     `json:"patientSex"`
	PatientDateOfBirth *time.Time                 `json:"patientDateOfBirth"`
}

// BookAppointment creates a pending appointment for the calling patient and
// queues the confirmation message. The write is durable before the response;
// notification delivery is best-effort and retried in the background.
func BookAppointment(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	user, err := services.GetUser(ident.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "There is no user with that ID")
		return
	}

	var req BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Doctor == "" {
		writeError(w, http.StatusBadRequest, "Please provide a valid specialist ID")
		return
	}
	specialist, err := services.GetSpecialist(req.Doctor)
	if err != nil || specialist == nil {
		writeError(w, http.StatusBadRequest, "No specialist matching that ID was found")
		return
	}

	doc, errMessage := appointmentFromRequest(&req, ident.ID)
	if errMessage != "" {
		writeError(w, http.StatusBadRequest, errMessage)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := database.DB.Collection(appointmentCollection).InsertOne(ctx, doc)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)

	// Queue the confirmation after the durable write; a provider outage must
	// not turn a successful booking into an error response.
	notifErr := services.EnqueueNotification(ctx, services.Notification{
		RecipientEmail: user.Email,
		Title:          "Appointment update",
		TemplateID:     services.TemplateAppointmentConfirmation,
		TemplateData: map[string]string{
			"username":        user.Name,
			"time":            doc.Time,
			"date":            doc.Day.Format("Monday, January 2, 2006"),
			"specialist_name": specialist.Name(),
		},
	})
	if notifErr != nil {
		log.Printf("booking %s: failed to queue confirmation: %v", doc.ID.Hex(), notifErr)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"appointment": viewOf(doc),
	})
}

func appointmentFromRequest(req *BookAppointmentRequest, patientID string) (models.Appointment, string) {
	if req.ConsultationReason == "" {
		return models.Appointment{}, "Please provide a reason for your appointment"
	}

	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		return models.Appointment{}, "Invalid day, expected YYYY-MM-DD"
	}
	if _, err := schedule.ParseClock(req.Time); err != nil {
		return models.Appointment{}, "Invalid time, expected HH:mm"
	}

	duration := req.Duration
	if duration == "" {
		duration = models.DefaultAppointmentDuration
	}
	if !models.ValidDuration(duration) {
		return models.Appointment{}, "Duration must be one of 15, 30, 45, 60"
	}

	consultationType := req.ConsultationType
	if consultationType == "" {
		consultationType = models.ConsultationOnline
	}
	if consultationType != models.ConsultationOnline && consultationType != models.ConsultationOnSite {
		return models.Appointment{}, "Consultation type must be online or on-site"
	}

	isFirstVisit := true
	if req.IsFirstVisit != nil {
		isFirstVisit = *req.IsFirstVisit
	}

	now := time.Now().UTC()
	return models.Appointment{
		CreatedAt:          now,
		UpdatedAt:          now,
		Title:              req.Title,
		Day:                day,
		Time:               req.Time,
		Status:             models.StatusPending,
		ConsultationReason: req.ConsultationReason,
		Patient:            patientID,
		Doctor:             req.Doctor,
		Duration:           duration,
		IsFirstVisit:       isFirstVisit,
		IsTakingMeds:       req.IsTakingMeds,
		HasAllergy:         req.HasAllergy,
		HasDisability:      req.HasDisability,
		FocusArea:          req.FocusArea,
		Uploads:            req.Uploads,
		ConsultationType:   consultationType,
		Reviews:            []models.Review{},
		PatientSex:         req.PatientSex,
		PatientDateOfBirth: req.PatientDateOfBirth,
	}, ""
}

// CreateBlankAppointment lets a specialist create an administrative
// appointment on their own calendar, optionally without a patient.
func CreateBlankAppointment(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	specialist, err := services.GetSpecialist(ident.ID)
	if err != nil || specialist == nil {
		writeError(w, http.StatusNotFound, "There is no specialist with that ID")
		return
	}

	var req BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Doctor = ident.ID

	doc, errMessage := appointmentFromRequest(&req, "")
	if errMessage != "" {
		writeError(w, http.StatusBadRequest, errMessage)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := database.DB.Collection(appointmentCollection).InsertOne(ctx, doc)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"appointment": viewOf(doc),
	})
}

// GetAppointment returns one appointment with derived fields.
func GetAppointment(w http.ResponseWriter, r *http.Request) {
	doc, ok := fetchAppointment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"appointment": viewOf(*doc),
	})
}

func fetchAppointment(w http.ResponseWriter, r *http.Request) (*models.Appointment, bool) {
	objectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid appointment ID")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var doc models.Appointment
	err = database.DB.Collection(appointmentCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			writeError(w, http.StatusNotFound, "Appointment not found")
			return nil, false
		}
		writeInternalError(w, err)
		return nil, false
	}
	return &doc, true
}

// GetMyAppointments lists the calling patient's appointments.
func GetMyAppointments(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)
	listAppointments(w, r, bson.M{"patient": ident.ID})
}

// GetMyAppointmentsAsSpecialist lists the calling specialist's appointments.
func GetMyAppointmentsAsSpecialist(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)
	listAppointments(w, r, bson.M{"doctor": ident.ID})
}

func listAppointments(w http.ResponseWriter, r *http.Request, filter bson.M) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cur, err := database.DB.Collection(appointmentCollection).Find(ctx, filter)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer cur.Close(ctx)

	appointments := []models.Appointment{}
	if err := cur.All(ctx, &appointments); err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"results":      len(appointments),
		"appointments": viewsOf(appointments),
	})
}

// GetMyDoctors derives the distinct specialists across the calling patient's
// appointment history, enriched from the directory.
func GetMyDoctors(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ids, err := database.DB.Collection(appointmentCollection).Distinct(ctx, "doctor", bson.M{"patient": ident.ID})
	if err != nil {
		writeInternalError(w, err)
		return
	}

	doctors := []map[string]interface{}{}
	for _, raw := range ids {
		id, ok := raw.(string)
		if !ok || id == "" {
			continue
		}
		specialist, err := services.GetSpecialist(id)
		if err != nil || specialist == nil {
			continue
		}
		doctors = append(doctors, map[string]interface{}{
			"id":            specialist.ID,
			"firstName":     specialist.FirstName,
			"lastName":      specialist.LastName,
			"qualification": specialist.Qualification,
			"avatar":        specialist.Avatar,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"doctors": doctors,
	})
}

// transitionRequest carries the optional fields lifecycle actions may set.
type transitionRequest struct {
	Day            string `json:"day"`
	Time           string `json:"time"`
	SpecialistNote string `json:"specialistNote"`
}

// RescheduleAppointment moves an appointment to a new day/time and marks it
// postponed. Rejected from terminal states.
func RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	doc, ok := fetchAppointment(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid day, expected YYYY-MM-DD")
		return
	}
	if _, err := schedule.ParseClock(req.Time); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time, expected HH:mm")
		return
	}

	next, err := appointment.Transition(doc.Status, appointment.ActionReschedule)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	update := bson.M{
		"status":          next,
		"day":             day,
		"time":            req.Time,
		"specialist_note": req.SpecialistNote,
	}
	applyTransition(w, r, doc, update)
}

// CancelAppointment cancels an appointment. Canceling twice is a no-op.
func CancelAppointment(w http.ResponseWriter, r *http.Request) {
	doc, ok := fetchAppointment(w, r)
	if !ok {
		return
	}

	// The note is optional; a body-less cancel is legal.
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	next, err := appointment.Transition(doc.Status, appointment.ActionCancel)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	if doc.Status == models.StatusCanceled {
		// Already canceled; don't overwrite the original cancellation note.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"appointment": viewOf(*doc),
		})
		return
	}

	applyTransition(w, r, doc, bson.M{
		"status":          next,
		"specialist_note": req.SpecialistNote,
	})
}

// ApproveAppointment confirms a pending or postponed appointment.
func ApproveAppointment(w http.ResponseWriter, r *http.Request) {
	doc, ok := fetchAppointment(w, r)
	if !ok {
		return
	}

	next, err := appointment.Transition(doc.Status, appointment.ActionApprove)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	applyTransition(w, r, doc, bson.M{"status": next})
}

// CompleteAppointment marks an upcoming appointment as completed.
// Administrative; there is no patient- or specialist-facing route for it.
func CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	doc, ok := fetchAppointment(w, r)
	if !ok {
		return
	}

	next, err := appointment.Transition(doc.Status, appointment.ActionComplete)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	applyTransition(w, r, doc, bson.M{"status": next})
}

func applyTransition(w http.ResponseWriter, r *http.Request, doc *models.Appointment, set bson.M) {
	set["updated_at"] = time.Now().UTC()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, err := database.DB.Collection(appointmentCollection).UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": set},
	)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	var updated models.Appointment
	err = database.DB.Collection(appointmentCollection).FindOne(ctx, bson.M{"_id": doc.ID}).Decode(&updated)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"appointment": viewOf(updated),
	})
}

// UpdateAppointmentRequest is a partial administrative update.
type UpdateAppointmentRequest struct {
	Title              *string                     `json:"title"`
	Day                *string                     `json:"day"`
	Time               *string                     `json:"time"`
	ConsultationReason *string                     `json:"consultationReason"`
	Duration           *models.AppointmentDuration `json:"appointmentDuration"`
	FocusArea          *string                     `json:"focusArea"`
	Uploads            *string                     `json:"uploads"`
	ConsultationType   *models.ConsultationType    `json:"consultationType"`
	SpecialistNote     *string                     `json:"specialistNote"`
}

// UpdateAppointment merges provided fields. Status is deliberately not
// updatable here; lifecycle actions own status changes.
func UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	doc, ok := fetchAppointment(w, r)
	if !ok {
		return
	}

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	set := bson.M{}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Day != nil {
		day, err := time.Parse("2006-01-02", *req.Day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid day, expected YYYY-MM-DD")
			return
		}
		set["day"] = day
	}
	if req.Time != nil {
		if _, err := schedule.ParseClock(*req.Time); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid time, expected HH:mm")
			return
		}
		set["time"] = *req.Time
	}
	if req.ConsultationReason != nil {
		if *req.ConsultationReason == "" {
			writeError(w, http.StatusBadRequest, "Please provide a reason for your appointment")
			return
		}
		set["consultation_reason"] = *req.ConsultationReason
	}
	if req.Duration != nil {
		if !models.ValidDuration(*req.Duration) {
			writeError(w, http.StatusBadRequest, "Duration must be one of 15, 30, 45, 60")
			return
		}
		set["appointment_duration"] = *req.Duration
	}
	if req.FocusArea != nil {
		set["focus_area"] = *req.FocusArea
	}
	if req.Uploads != nil {
		set["uploads"] = *req.Uploads
	}
	if req.ConsultationType != nil {
		if *req.ConsultationType != models.ConsultationOnline && *req.ConsultationType != models.ConsultationOnSite {
			writeError(w, http.StatusBadRequest, "Consultation type must be online or on-site")
			return
		}
		set["consultation_type"] = *req.ConsultationType
	}
	if req.SpecialistNote != nil {
		set["specialist_note"] = *req.SpecialistNote
	}

	if len(set) == 0 {
		writeError(w, http.StatusBadRequest, "No fields to update")
		return
	}
	applyTransition(w, r, doc, set)
}

// DeleteAppointment removes an appointment. Admin role only (route-gated).
func DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	objectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := database.DB.Collection(appointmentCollection).DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if res.DeletedCount == 0 {
		writeError(w, http.StatusNotFound, "Appointment not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Appointment deleted",
	})
}

// AddReviewRequest is a patient's post-appointment review.
type AddReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// AddReview appends a review to an appointment the caller attended.
func AddReview(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	doc, ok := fetchAppointment(w, r)
	if !ok {
		return
	}
	if doc.Patient != ident.ID {
		writeError(w, http.StatusForbidden, "You can only review your own appointments")
		return
	}

	var req AddReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	now := time.Now().UTC()
	review := models.Review{
		Rating:    req.Rating,
		Comment:   req.Comment,
		User:      ident.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, err := database.DB.Collection(appointmentCollection).UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$push": bson.M{"reviews": review}, "$set": bson.M{"updated_at": now}},
	)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"review":  review,
	})
}
