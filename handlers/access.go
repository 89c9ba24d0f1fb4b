// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tischrunde/tischrunde/middleware"
	"github.com/tischrunde/tischrunde/models"
)

// loadCampaign fetches a campaign row. Returns sql.ErrNoRows when absent.
func loadCampaign(db *sql.DB, campaignID string) (models.Campaign, error) {
	var c models.Campaign
	err := db.QueryRow(`
		SELECT id, name, description, game_system, image, dm_id, created_at
		FROM campaign WHERE id = $1
	`, campaignID).Scan(&c.ID, &c.Name, &c.Description, &c.GameSystem, &c.Image, &c.DMID, &c.CreatedAt)
	return c, err
}

// hasAccess reports whether the user is the campaign's DM or one of its
// players. The DM is never stored in campaign_player, so membership of
// either kind grants access and adding the DM as a player would be a no-op.
func hasAccess(db *sql.DB, c models.Campaign, userID string) (bool, error) {
	if userID == c.DMID {
		return true, nil
	}
	var isPlayer bool
	err := db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM campaign_player
			WHERE campaign_id = $1 AND user_id = $2
		)
	`, c.ID, userID).Scan(&isPlayer)
	if err != nil {
		return false, err
	}
	return isPlayer, nil
}

// requireMember loads the campaign from the {id} path value and verifies
// the current user may see it. On failure the response is already written
// and ok is false.
func requireMember(db *sql.DB, w http.ResponseWriter, r *http.Request) (models.Campaign, models.User, bool) {
	user := middleware.CurrentUser(r)

	campaignID := r.PathValue("id")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaign id is required")
		return models.Campaign{}, user, false
	}

	campaign, err := loadCampaign(db, campaignID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
		return models.Campaign{}, user, false
	}
	if err != nil {
		slog.Error("failed to query campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Campaign{}, user, false
	}

	ok, err := hasAccess(db, campaign, user.ID)
	if err != nil {
		slog.Error("failed to check campaign access", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Campaign{}, user, false
	}
	if !ok {
		middleware.ErrorResponse(w, http.StatusForbidden, "No access to this campaign")
		return models.Campaign{}, user, false
	}

	return campaign, user, true
}

// requireDM is requireMember plus the DM-only gate used by every
// scheduling and roster mutation.
func requireDM(db *sql.DB, w http.ResponseWriter, r *http.Request) (models.Campaign, models.User, bool) {
	campaign, user, ok := requireMember(db, w, r)
	if !ok {
		return campaign, user, false
	}
	if user.ID != campaign.DMID {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the DM may do this")
		return campaign, user, false
	}
	return campaign, user, true
}

// isUniqueViolation matches constraint errors from both drivers
// (modernc sqlite and lib/pq).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// placeholders renders "$n, $n+1, ..." for IN clauses, starting after
// offset already-used parameters.
func placeholders(offset, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(offset+i+1)
	}
	return strings.Join(parts, ", ")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// displayName resolves a voter's preferred name: full name if set,
// otherwise the handle.
func displayName(fullName *string, username string) string {
	if fullName != nil && *fullName != "" {
		return *fullName
	}
	return username
}

func scanTally(rows *sql.Rows) (models.Tally, error) {
	tally := models.Tally{Yes: []string{}, Maybe: []string{}, No: []string{}}
	for rows.Next() {
		var response, username string
		var fullName *string
		if err := rows.Scan(&response, &fullName, &username); err != nil {
			return tally, err
		}
		name := displayName(fullName, username)
		switch response {
		case models.ResponseYes:
			tally.Yes = append(tally.Yes, name)
		case models.ResponseMaybe:
			tally.Maybe = append(tally.Maybe, name)
		case models.ResponseNo:
			tally.No = append(tally.No, name)
		}
	}
	return tally, rows.Err()
}

// sessionTally returns the complete RSVP summary for a session, grouped by
// answer and ordered by when each answer was last touched.
func sessionTally(db *sql.DB, sessionID string) (models.Tally, error) {
	rows, err := db.Query(`
		SELECT r.response, u.full_name, u.username
		FROM session_response r
		JOIN users u ON u.id = r.user_id
		WHERE r.session_id = $1
		ORDER BY r.updated_at
	`, sessionID)
	if err != nil {
		return models.Tally{}, err
	}
	defer rows.Close()
	return scanTally(rows)
}

// optionTally is sessionTally for a single poll option.
func optionTally(db *sql.DB, optionID string) (models.Tally, error) {
	rows, err := db.Query(`
		SELECT v.response, u.full_name, u.username
		FROM poll_vote v
		JOIN users u ON u.id = v.user_id
		WHERE v.option_id = $1
		ORDER BY v.updated_at
	`, optionID)
	if err != nil {
		return models.Tally{}, err
	}
	defer rows.Close()
	return scanTally(rows)
}
