package routes

import (
	"net/http"

	"github.com/checkme-health/checkme-backend/internal/handlers"
	"github.com/checkme-health/checkme-backend/internal/middleware"
	"github.com/checkme-health/checkme-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(r *chi.Mux) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public availability routes (patients browse before signing in)
	r.Get("/api/schedules/doctor/{specialistID}", handlers.GetDoctorSchedules)
	r.Get("/api/schedules/doctor/{specialistID}/availability", handlers.GetDoctorAvailability)

	// Realtime gateway (authenticates its own token; browsers cannot set
	// headers on WebSocket upgrades)
	r.Get("/ws", handlers.GatewayHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		// Schedule routes (specialists manage their own availability)
		r.Route("/api/schedules", func(r chi.Router) {
			r.With(middleware.RequireRole(services.RoleSpecialist)).Post("/", handlers.CreateSchedule)
			r.With(middleware.RequireRole(services.RoleSpecialist)).Get("/mine", handlers.GetMySchedules)
			r.Get("/{id}", handlers.GetSchedule)
			r.Patch("/{id}", handlers.UpdateSchedule)
			r.Delete("/{id}", handlers.DeleteSchedule)
			r.Put("/{id}/default", handlers.MarkScheduleDefault)
			r.Post("/{scheduleID}/overrides", handlers.AddOverride)
		})

		// Appointment routes
		r.Route("/api/appointments", func(r chi.Router) {
			r.With(middleware.RequireRole(services.RolePatient)).Post("/", handlers.BookAppointment)
			r.With(middleware.RequireRole(services.RoleSpecialist)).Post("/blank", handlers.CreateBlankAppointment)
			r.With(middleware.RequireRole(services.RolePatient)).Get("/mine", handlers.GetMyAppointments)
			r.With(middleware.RequireRole(services.RoleSpecialist)).Get("/assigned", handlers.GetMyAppointmentsAsSpecialist)
			r.With(middleware.RequireRole(services.RolePatient)).Get("/doctors", handlers.GetMyDoctors)
			r.Get("/{id}", handlers.GetAppointment)
			r.Patch("/{id}", handlers.UpdateAppointment)
			r.With(middleware.RequireRole(services.RoleAdmin)).Delete("/{id}", handlers.DeleteAppointment)
			r.Put("/{id}/reschedule", handlers.RescheduleAppointment)
			r.Put("/{id}/cancel", handlers.CancelAppointment)
			r.With(middleware.RequireRole(services.RoleSpecialist)).Put("/{id}/approve", handlers.ApproveAppointment)
			r.With(middleware.RequireRole(services.RoleAdmin)).Put("/{id}/complete", handlers.CompleteAppointment)
			r.With(middleware.RequireRole(services.RolePatient)).Post("/{id}/reviews", handlers.AddReview)
		})

		// Chat routes (HTTP surface; the gateway covers live delivery)
		r.Route("/api/chats", func(r chi.Router) {
			r.Get("/", handlers.GetMyChats)
			r.Post("/messages", handlers.SendTextMessage)
			r.Post("/documents", handlers.SendDocumentMessage)
			r.Get("/{id}", handlers.GetChatByID)
			r.Put("/{id}/read", handlers.MarkChatRead)
		})

		// Admin routes
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(services.RoleAdmin))
			r.Get("/specialists/pending", handlers.ListPendingSpecialists)
			r.Put("/specialists/{specialistID}/approve", handlers.ApproveSpecialist)
			r.Delete("/specialists/{specialistID}", handlers.RejectSpecialist)
		})
	})
}
