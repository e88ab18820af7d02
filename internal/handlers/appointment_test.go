package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func cancelRequest(id primitive.ObjectID, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(http.MethodPut, "/api/appointments/"+id.Hex()+"/cancel", nil)
	} else {
		r = httptest.NewRequest(http.MethodPut, "/api/appointments/"+id.Hex()+"/cancel", strings.NewReader(body))
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.Hex())
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func storedAppointment(id primitive.ObjectID, status models.AppointmentStatus) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "day", Value: primitive.NewDateTimeFromTime(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))},
		{Key: "time", Value: "09:00"},
		{Key: "status", Value: string(status)},
		{Key: "consultation_reason", Value: "checkup"},
		{Key: "patient", Value: "p-1"},
		{Key: "doctor", Value: "d-1"},
		{Key: "appointment_duration", Value: "30"},
	}
}

type appointmentResponse struct {
	Success     bool `json:"success"`
	Appointment struct {
		Status  string `json:"status"`
		EndTime string `json:"endTime"`
	} `json:"appointment"`
}

func TestCancelAppointment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("body-less cancel succeeds", func(mt *mtest.T) {
		prev := database.DB
		database.DB = mt.DB
		defer func() { database.DB = prev }()

		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "checkme.appointments", mtest.FirstBatch, storedAppointment(id, models.StatusPending)),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateCursorResponse(0, "checkme.appointments", mtest.FirstBatch, storedAppointment(id, models.StatusCanceled)),
		)

		w := httptest.NewRecorder()
		// The specialist note is optional; cancel must accept an empty body.
		CancelAppointment(w, cancelRequest(id, ""))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var resp appointmentResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Success || resp.Appointment.Status != string(models.StatusCanceled) {
			t.Fatalf("response = %+v", resp)
		}
		if resp.Appointment.EndTime != "09:30" {
			t.Errorf("endTime = %q, want 09:30", resp.Appointment.EndTime)
		}
	})

	mt.Run("malformed body still rejected", func(mt *mtest.T) {
		prev := database.DB
		database.DB = mt.DB
		defer func() { database.DB = prev }()

		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "checkme.appointments", mtest.FirstBatch, storedAppointment(id, models.StatusPending)),
		)

		w := httptest.NewRecorder()
		CancelAppointment(w, cancelRequest(id, "{not json"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	mt.Run("cancel of a canceled appointment is a no-op", func(mt *mtest.T) {
		prev := database.DB
		database.DB = mt.DB
		defer func() { database.DB = prev }()

		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "checkme.appointments", mtest.FirstBatch, storedAppointment(id, models.StatusCanceled)),
		)

		w := httptest.NewRecorder()
		CancelAppointment(w, cancelRequest(id, ""))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var resp appointmentResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Appointment.Status != string(models.StatusCanceled) {
			t.Fatalf("response = %+v", resp)
		}
	})

	mt.Run("completed appointment cannot be canceled", func(mt *mtest.T) {
		prev := database.DB
		database.DB = mt.DB
		defer func() { database.DB = prev }()

		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "checkme.appointments", mtest.FirstBatch, storedAppointment(id, models.StatusCompleted)),
		)

		w := httptest.NewRecorder()
		CancelAppointment(w, cancelRequest(id, ""))

		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})
}
