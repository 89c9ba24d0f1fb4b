// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tischrunde/tischrunde/cliparse"
	"github.com/tischrunde/tischrunde/middleware"
	"github.com/tischrunde/tischrunde/models"
)

type ScheduleHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewScheduleHandler(db *sql.DB, cfg cliparse.Config) *ScheduleHandler {
	return &ScheduleHandler{db: db, cfg: cfg}
}

// Schedule handles GET /schedule
// The cross-campaign agenda: every future session in any campaign the user
// belongs to, plus every open poll the user has not fully voted on yet.
func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	now := time.Now()

	campaignIDs, campaignNames, err := memberCampaigns(h.db, user.ID)
	if err != nil {
		slog.Error("failed to query member campaigns", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	sessions, err := upcomingSessions(h.db, user.ID, campaignIDs, campaignNames, now)
	if err != nil {
		slog.Error("failed to query upcoming sessions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	polls, err := openPolls(h.db, user.ID, campaignIDs, campaignNames, true)
	if err != nil {
		slog.Error("failed to query open polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ScheduleResponse{
		Sessions: sessions,
		Polls:    polls,
	})
}

// Pending handles GET /pending
// A single number for the badge in the navigation bar.
func (h *ScheduleHandler) Pending(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	now := time.Now()

	campaignIDs, _, err := memberCampaigns(h.db, user.ID)
	if err != nil {
		slog.Error("failed to query member campaigns", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	count := pendingCount(h.db, user.ID, campaignIDs, now)
	middleware.JSONResponse(w, http.StatusOK, models.PendingResponse{Count: count})
}

// memberCampaigns lists every campaign the user belongs to, as DM or
// player, and maps their ids to names for the schedule views.
func memberCampaigns(db *sql.DB, userID string) ([]string, map[string]string, error) {
	rows, err := db.Query(`
		SELECT id, name FROM campaign c
		WHERE c.dm_id = $1
		   OR EXISTS (SELECT 1 FROM campaign_player p WHERE p.campaign_id = c.id AND p.user_id = $1)
	`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	ids := []string{}
	names := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		names[id] = name
	}
	return ids, names, rows.Err()
}

// upcomingSessions returns the future sessions of the given campaigns in
// chronological order, each annotated with the user's own RSVP (if any)
// and a relative "in 3 days" label.
func upcomingSessions(db *sql.DB, userID string, campaignIDs []string, campaignNames map[string]string, now time.Time) ([]models.UpcomingSession, error) {
	sessions := []models.UpcomingSession{}
	if len(campaignIDs) == 0 {
		return sessions, nil
	}

	args := []any{userID, now}
	for _, id := range campaignIDs {
		args = append(args, id)
	}

	rows, err := db.Query(`
		SELECT s.id, s.campaign_id, s.title, s.scheduled_at, s.location, s.notes,
		       s.created_by, s.created_at, r.response
		FROM session s
		LEFT JOIN session_response r ON r.session_id = s.id AND r.user_id = $1
		WHERE s.scheduled_at >= $2 AND s.campaign_id IN (`+placeholders(2, len(campaignIDs))+`)
		ORDER BY s.scheduled_at
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u models.UpcomingSession
		var myResponse *string
		if err := rows.Scan(&u.ID, &u.CampaignID, &u.Title, &u.ScheduledAt, &u.Location,
			&u.Notes, &u.CreatedBy, &u.CreatedAt, &myResponse); err != nil {
			return nil, err
		}
		u.CampaignName = campaignNames[u.CampaignID]
		if myResponse != nil {
			u.MyResponse = *myResponse
		}
		u.StartsIn = humanize.Time(u.ScheduledAt)
		sessions = append(sessions, u)
	}
	return sessions, rows.Err()
}

// openPolls returns the open polls of the given campaigns with their
// options and the user's own votes. With filterFullyVoted set, polls the
// user already answered on every option are dropped; the campaign detail
// view keeps them, the personal schedule does not.
func openPolls(db *sql.DB, userID string, campaignIDs []string, campaignNames map[string]string, filterFullyVoted bool) ([]models.OpenPoll, error) {
	polls := []models.OpenPoll{}
	if len(campaignIDs) == 0 {
		return polls, nil
	}

	args := []any{}
	for _, id := range campaignIDs {
		args = append(args, id)
	}

	rows, err := db.Query(`
		SELECT id, campaign_id, title, notes, is_closed, created_by, created_at
		FROM session_poll
		WHERE is_closed = FALSE AND campaign_id IN (`+placeholders(0, len(campaignIDs))+`)
		ORDER BY created_at DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.OpenPoll
		if err := rows.Scan(&p.ID, &p.CampaignID, &p.Title, &p.Notes, &p.IsClosed,
			&p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CampaignName = campaignNames[p.CampaignID]
		p.MyVotes = map[string]string{}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range polls {
		if err := loadPollVotes(db, &polls[i], userID); err != nil {
			return nil, err
		}
	}

	if !filterFullyVoted {
		return polls, nil
	}

	remaining := []models.OpenPoll{}
	for _, p := range polls {
		voted := 0
		for _, opt := range p.Options {
			if _, ok := p.MyVotes[opt.ID]; ok {
				voted++
			}
		}
		// A poll only leaves the agenda once every option is answered.
		if len(p.Options) == 0 || voted < len(p.Options) {
			remaining = append(remaining, p)
		}
	}
	return remaining, nil
}

func loadPollVotes(db *sql.DB, poll *models.OpenPoll, userID string) error {
	rows, err := db.Query(`
		SELECT o.id, o.poll_id, o.scheduled_at, o.location, o.notes, v.response
		FROM poll_option o
		LEFT JOIN poll_vote v ON v.option_id = o.id AND v.user_id = $1
		WHERE o.poll_id = $2
		ORDER BY o.scheduled_at
	`, userID, poll.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var opt models.PollOption
		var response *string
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.ScheduledAt, &opt.Location, &opt.Notes, &response); err != nil {
			return err
		}
		poll.Options = append(poll.Options, opt)
		if response != nil {
			poll.MyVotes[opt.ID] = *response
		}
	}
	return rows.Err()
}

// pendingCount is the number of things waiting on the user across the
// given campaigns: future sessions without their RSVP, plus open polls
// where at least one option is still unanswered. Advisory only; a failing
// term logs a warning and counts as zero instead of failing the request.
func pendingCount(db *sql.DB, userID string, campaignIDs []string, now time.Time) int {
	if len(campaignIDs) == 0 {
		return 0
	}

	in := placeholders(2, len(campaignIDs))
	args := []any{userID, now}
	for _, id := range campaignIDs {
		args = append(args, id)
	}

	count := 0

	var sessions int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM session s
		WHERE s.scheduled_at >= $2
		  AND s.campaign_id IN (`+in+`)
		  AND NOT EXISTS (
			SELECT 1 FROM session_response r
			WHERE r.session_id = s.id AND r.user_id = $1
		  )
	`, args...).Scan(&sessions)
	if err != nil {
		slog.Warn("pending count degraded", "part", "sessions", "error", err)
	} else {
		count += sessions
	}

	pollArgs := []any{userID}
	for _, id := range campaignIDs {
		pollArgs = append(pollArgs, id)
	}
	var polls int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM session_poll p
		WHERE p.is_closed = FALSE
		  AND p.campaign_id IN (`+placeholders(1, len(campaignIDs))+`)
		  AND EXISTS (
			SELECT 1 FROM poll_option o
			WHERE o.poll_id = p.id
			  AND NOT EXISTS (
				SELECT 1 FROM poll_vote v
				WHERE v.option_id = o.id AND v.user_id = $1
			  )
		  )
	`, pollArgs...).Scan(&polls)
	if err != nil {
		slog.Warn("pending count degraded", "part", "polls", "error", err)
	} else {
		count += polls
	}

	return count
}
