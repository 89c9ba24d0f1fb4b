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

type PollHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config) *PollHandler {
	return &PollHandler{db: db, cfg: cfg}
}

// Create handles POST /campaigns/{id}/polls
func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireDM(h.db, w, r)
	if !ok {
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Options) < 1 || len(req.Options) > 5 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "a poll needs between 1 and 5 options")
		return
	}
	for _, opt := range req.Options {
		if opt.ScheduledAt.IsZero() {
			middleware.ErrorResponse(w, http.StatusBadRequest, "every option needs a scheduled_at")
			return
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Scheduling poll"
	}

	poll := models.SessionPoll{
		ID:         uuid.NewString(),
		CampaignID: campaign.ID,
		Title:      &title,
		Notes:      nullable(req.Notes),
		CreatedBy:  user.ID,
		CreatedAt:  time.Now(),
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO session_poll (id, campaign_id, title, notes, is_closed, created_by, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
	`, poll.ID, poll.CampaignID, poll.Title, poll.Notes, poll.CreatedBy, poll.CreatedAt)
	if err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	for _, opt := range req.Options {
		option := models.PollOption{
			ID:          uuid.NewString(),
			PollID:      poll.ID,
			ScheduledAt: opt.ScheduledAt,
			Location:    nullable(opt.Location),
			Notes:       nullable(opt.Notes),
		}
		_, err = tx.Exec(`
			INSERT INTO poll_option (id, poll_id, scheduled_at, location, notes)
			VALUES ($1, $2, $3, $4, $5)
		`, option.ID, option.PollID, option.ScheduledAt, option.Location, option.Notes)
		if err != nil {
			slog.Error("failed to insert poll option", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
			return
		}
		poll.Options = append(poll.Options, option)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "campaign_id", campaign.ID, "poll_id", poll.ID, "options", len(poll.Options))

	middleware.JSONResponse(w, http.StatusCreated, poll)
}

// Vote handles POST /campaigns/{id}/polls/{pid}/vote
// Same upsert protocol as the session RSVP, keyed on (option, user).
func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	poll, err := loadPoll(h.db, r.PathValue("pid"), campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if poll.IsClosed {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is already closed")
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	choice := strings.ToLower(strings.TrimSpace(req.Response))
	if !models.ValidResponse(choice) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "response must be yes, no or maybe")
		return
	}

	// The option has to belong to this poll.
	var optionID string
	err = h.db.QueryRow(`
		SELECT id FROM poll_option WHERE id = $1 AND poll_id = $2
	`, req.OptionID, poll.ID).Scan(&optionID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found in this poll")
		return
	}
	if err != nil {
		slog.Error("failed to query poll option", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := upsertResponse(h.db, `poll_vote`, `option_id`, optionID, user.ID, choice); err != nil {
		slog.Error("failed to save vote", "error", err, "option_id", optionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save vote")
		return
	}

	tally, err := optionTally(h.db, optionID)
	if err != nil {
		slog.Error("failed to build vote tally", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("vote saved", "poll_id", poll.ID, "option_id", optionID, "user_id", user.ID, "response", choice)

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		PollID:     poll.ID,
		OptionID:   optionID,
		MyResponse: choice,
		Tally:      tally,
	})
}

// Finalize handles POST /campaigns/{id}/polls/{pid}/finalize
// One-way transition: the chosen option becomes a real session and the
// poll closes, atomically. A closed poll can never be finalized again.
func (h *PollHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireDM(h.db, w, r)
	if !ok {
		return
	}

	poll, err := loadPoll(h.db, r.PathValue("pid"), campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if poll.IsClosed {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is already closed")
		return
	}

	var req models.FinalizePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var option models.PollOption
	err = h.db.QueryRow(`
		SELECT id, poll_id, scheduled_at, location, notes
		FROM poll_option WHERE id = $1 AND poll_id = $2
	`, req.OptionID, poll.ID).Scan(&option.ID, &option.PollID, &option.ScheduledAt, &option.Location, &option.Notes)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found in this poll")
		return
	}
	if err != nil {
		slog.Error("failed to query poll option", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	title := "Planned session"
	if poll.Title != nil && *poll.Title != "" {
		title = *poll.Title
	}
	notes := option.Notes
	if notes == nil {
		notes = poll.Notes
	}

	session := models.Session{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		Title:       &title,
		ScheduledAt: option.ScheduledAt,
		Location:    option.Location,
		Notes:       notes,
		CreatedBy:   user.ID,
		CreatedAt:   time.Now(),
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO session (id, campaign_id, title, scheduled_at, location, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID, session.CampaignID, session.Title, session.ScheduledAt,
		session.Location, session.Notes, session.CreatedBy, session.CreatedAt)
	if err != nil {
		slog.Error("failed to insert session from poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to finalize poll")
		return
	}

	// Guards against a concurrent finalize: only one request can flip the
	// flag, the loser rolls back its session insert.
	res, err := tx.Exec(`
		UPDATE session_poll SET is_closed = TRUE WHERE id = $1 AND is_closed = FALSE
	`, poll.ID)
	if err != nil {
		slog.Error("failed to close poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to finalize poll")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is already closed")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to finalize poll")
		return
	}

	slog.Info("poll finalized", "poll_id", poll.ID, "session_id", session.ID, "option_id", option.ID)

	middleware.JSONResponse(w, http.StatusCreated, session)
}

func loadPoll(db *sql.DB, pollID, campaignID string) (models.SessionPoll, error) {
	var p models.SessionPoll
	err := db.QueryRow(`
		SELECT id, campaign_id, title, notes, is_closed, created_by, created_at
		FROM session_poll WHERE id = $1 AND campaign_id = $2
	`, pollID, campaignID).Scan(&p.ID, &p.CampaignID, &p.Title, &p.Notes, &p.IsClosed, &p.CreatedBy, &p.CreatedAt)
	return p, err
}
