// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tischrunde/tischrunde/cliparse"
	"github.com/tischrunde/tischrunde/middleware"
	"github.com/tischrunde/tischrunde/models"
)

type SessionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewSessionHandler(db *sql.DB, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{db: db, cfg: cfg}
}

// Create handles POST /campaigns/{id}/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireDM(h.db, w, r)
	if !ok {
		return
	}

	var req models.SessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ScheduledAt.IsZero() {
		middleware.ErrorResponse(w, http.StatusBadRequest, "scheduled_at is required")
		return
	}

	session := models.Session{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		Title:       nullable(req.Title),
		ScheduledAt: req.ScheduledAt,
		Location:    nullable(req.Location),
		Notes:       nullable(req.Notes),
		CreatedBy:   user.ID,
		CreatedAt:   time.Now(),
	}

	_, err := h.db.Exec(`
		INSERT INTO session (id, campaign_id, title, scheduled_at, location, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID, session.CampaignID, session.Title, session.ScheduledAt,
		session.Location, session.Notes, session.CreatedBy, session.CreatedAt)

	if err != nil {
		slog.Error("failed to insert session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	slog.Info("session planned", "campaign_id", campaign.ID, "session_id", session.ID)

	middleware.JSONResponse(w, http.StatusCreated, session)
}

// Update handles PUT /campaigns/{id}/sessions/{sid}
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireDM(h.db, w, r)
	if !ok {
		return
	}

	sessionID := r.PathValue("sid")

	var req models.SessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ScheduledAt.IsZero() {
		middleware.ErrorResponse(w, http.StatusBadRequest, "scheduled_at is required")
		return
	}

	res, err := h.db.Exec(`
		UPDATE session
		SET title = $1, scheduled_at = $2, location = $3, notes = $4
		WHERE id = $5 AND campaign_id = $6
	`, nullable(req.Title), req.ScheduledAt, nullable(req.Location), nullable(req.Notes),
		sessionID, campaign.ID)

	if err != nil {
		slog.Error("failed to update session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update session")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return
	}

	session, err := loadSession(h.db, sessionID, campaign.ID)
	if err != nil {
		slog.Error("failed to reload session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, session)
}

// Delete handles DELETE /campaigns/{id}/sessions/{sid}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireDM(h.db, w, r)
	if !ok {
		return
	}

	sessionID := r.PathValue("sid")
	res, err := h.db.Exec(`
		DELETE FROM session WHERE id = $1 AND campaign_id = $2
	`, sessionID, campaign.ID)
	if err != nil {
		slog.Error("failed to delete session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return
	}

	slog.Info("session deleted", "campaign_id", campaign.ID, "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// RSVP handles POST /campaigns/{id}/sessions/{sid}/rsvp
// Upsert keyed on (session, user): a repeat answer overwrites the old one
// and refreshes updated_at, created_at never changes. Responds with the
// full per-answer name tally so the client can redraw in place.
func (h *SessionHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	sessionID := r.PathValue("sid")
	session, err := loadSession(h.db, sessionID, campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		slog.Error("failed to query session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var req models.RSVPRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	choice := strings.ToLower(strings.TrimSpace(req.Response))
	if !models.ValidResponse(choice) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "response must be yes, no or maybe")
		return
	}

	if err := upsertResponse(h.db, `session_response`, `session_id`, session.ID, user.ID, choice); err != nil {
		slog.Error("failed to save RSVP", "error", err, "session_id", session.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save RSVP")
		return
	}

	tally, err := sessionTally(h.db, session.ID)
	if err != nil {
		slog.Error("failed to build RSVP tally", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("RSVP saved", "session_id", session.ID, "user_id", user.ID, "response", choice)

	middleware.JSONResponse(w, http.StatusOK, models.RSVPResponse{
		SessionID:  session.ID,
		MyResponse: choice,
		Tally:      tally,
	})
}

// upsertResponse implements the shared RSVP/vote protocol for
// session_response and poll_vote, which have the same shape: a composite
// primary key (subject, user), a response value, and created/updated
// stamps. ON CONFLICT resolves a repeat answer from the same user into an
// update in a single statement, so the constraint never surfaces to
// callers and created_at keeps its original value.
func upsertResponse(db *sql.DB, table, subjectCol, subjectID, userID, response string) error {
	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO `+table+` (`+subjectCol+`, user_id, response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (`+subjectCol+`, user_id) DO UPDATE
		SET response = excluded.response, updated_at = excluded.updated_at
	`, subjectID, userID, response, now, now)
	return err
}

func loadSession(db *sql.DB, sessionID, campaignID string) (models.Session, error) {
	var s models.Session
	err := db.QueryRow(`
		SELECT id, campaign_id, title, scheduled_at, location, notes, created_by, created_at
		FROM session WHERE id = $1 AND campaign_id = $2
	`, sessionID, campaignID).Scan(&s.ID, &s.CampaignID, &s.Title, &s.ScheduledAt,
		&s.Location, &s.Notes, &s.CreatedBy, &s.CreatedAt)
	return s, err
}
