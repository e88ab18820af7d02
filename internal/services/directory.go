package services

import (
	"database/sql"

	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/models"
	"github.com/google/uuid"
)

// DirectoryUser is a patient profile from the Postgres directory.
type DirectoryUser struct {
	ID     string
	Name   string
	Email  string
	Avatar string
}

// DirectorySpecialist is a provider profile from the Postgres directory.
type DirectorySpecialist struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	Qualification string
	Avatar        string
	IsApproved    bool
}

// Name returns the display name used when enriching chats and appointments.
func (s *DirectorySpecialist) Name() string {
	return s.FirstName + " " + s.LastName
}

// GetUser looks up an active patient by id. Returns (nil, nil) when the id is
// well-formed but unknown.
func GetUser(userID string) (*DirectoryUser, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}

	var u DirectoryUser
	var avatar sql.NullString
	err = database.PostgresDB.QueryRow(`
		SELECT id, name, email, avatar FROM users WHERE id = $1 AND is_active = TRUE
	`, parsedID).Scan(&u.ID, &u.Name, &u.Email, &avatar)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	u.Avatar = avatar.String
	return &u, nil
}

// GetSpecialist looks up an active specialist by id. Returns (nil, nil) when
// the id is well-formed but unknown.
func GetSpecialist(specialistID string) (*DirectorySpecialist, error) {
	parsedID, err := uuid.Parse(specialistID)
	if err != nil {
		return nil, err
	}

	var s DirectorySpecialist
	var qualification, avatar sql.NullString
	err = database.PostgresDB.QueryRow(`
		SELECT id, first_name, last_name, email, qualification, avatar, is_approved
		FROM specialists WHERE id = $1 AND is_active = TRUE
	`, parsedID).Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &qualification, &avatar, &s.IsApproved)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.Qualification = qualification.String
	s.Avatar = avatar.String
	return &s, nil
}

// ResolveParticipants maps participant ids to display profiles, checking the
// users table first and the specialists table for the rest. Unknown ids map
// to a placeholder so a deleted account never breaks a chat listing.
func ResolveParticipants(ids []string) (map[string]models.Participant, error) {
	out := make(map[string]models.Participant, len(ids))

	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}

		user, err := GetUser(id)
		if err == nil && user != nil {
			out[id] = models.Participant{ID: id, Name: user.Name, Avatar: user.Avatar, Type: "user"}
			continue
		}

		specialist, err := GetSpecialist(id)
		if err == nil && specialist != nil {
			out[id] = models.Participant{ID: id, Name: specialist.Name(), Avatar: specialist.Avatar, Type: "specialist"}
			continue
		}

		out[id] = models.Participant{ID: id, Name: "Unknown"}
	}
	return out, nil
}
