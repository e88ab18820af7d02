package handlers

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// ListPendingSpecialists returns specialists awaiting approval.
func ListPendingSpecialists(w http.ResponseWriter, r *http.Request) {
	rows, err := database.PostgresDB.Query(`
		SELECT id, first_name, last_name, email, qualification
		FROM specialists WHERE is_approved = FALSE AND is_active = TRUE
		ORDER BY first_name, last_name
	`)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer rows.Close()

	specialists := []map[string]interface{}{}
	for rows.Next() {
		var id, firstName, lastName, email string
		var qualification sql.NullString
		if err := rows.Scan(&id, &firstName, &lastName, &email, &qualification); err != nil {
			writeInternalError(w, err)
			return
		}
		specialists = append(specialists, map[string]interface{}{
			"id":            id,
			"firstName":     firstName,
			"lastName":      lastName,
			"email":         email,
			"qualification": qualification.String,
		})
	}
	if err := rows.Err(); err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"results":     len(specialists),
		"specialists": specialists,
	})
}

// ApproveSpecialist marks a specialist as approved and provisions their
// default working-hours schedule so they are bookable immediately.
func ApproveSpecialist(w http.ResponseWriter, r *http.Request) {
	specialistID := chi.URLParam(r, "specialistID")
	if _, err := uuid.Parse(specialistID); err != nil {
		writeError(w, http.StatusBadRequest, "Please provide a valid specialist ID")
		return
	}

	res, err := database.PostgresDB.Exec(`
		UPDATE specialists SET is_approved = TRUE WHERE id = $1 AND is_active = TRUE
	`, specialistID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	affected, err := res.RowsAffected()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if affected == 0 {
		writeError(w, http.StatusNotFound, "There is no specialist with that ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := provisionDefaultSchedule(ctx, specialistID); err != nil {
		// Approval already committed; the specialist can still create a
		// schedule themselves.
		log.Printf("admin: default schedule for %s not provisioned: %v", specialistID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Specialist approved",
	})
}

// provisionDefaultSchedule inserts the stock Mon-Fri availability unless the
// specialist already has a schedule.
func provisionDefaultSchedule(ctx context.Context, specialistID string) error {
	col := database.DB.Collection(scheduleCollection)

	count, err := col.CountDocuments(ctx, bson.M{"doctor": specialistID})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = col.InsertOne(ctx, models.DefaultSchedule(specialistID))
	return err
}

// RejectSpecialist deactivates an unapproved specialist account.
func RejectSpecialist(w http.ResponseWriter, r *http.Request) {
	specialistID := chi.URLParam(r, "specialistID")
	if _, err := uuid.Parse(specialistID); err != nil {
		writeError(w, http.StatusBadRequest, "Please provide a valid specialist ID")
		return
	}

	res, err := database.PostgresDB.Exec(`
		UPDATE specialists SET is_active = FALSE WHERE id = $1 AND is_approved = FALSE
	`, specialistID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	affected, err := res.RowsAffected()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if affected == 0 {
		writeError(w, http.StatusNotFound, "There is no pending specialist with that ID")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Specialist rejected",
	})
}
