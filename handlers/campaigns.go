// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tischrunde/tischrunde/cliparse"
	"github.com/tischrunde/tischrunde/middleware"
	"github.com/tischrunde/tischrunde/models"
)

type CampaignHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewCampaignHandler(db *sql.DB, cfg cliparse.Config) *CampaignHandler {
	return &CampaignHandler{db: db, cfg: cfg}
}

// Create handles POST /campaigns
// The creator becomes the campaign's DM.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	var req models.CreateCampaignRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.GameSystem == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "game_system is required")
		return
	}

	campaign := models.Campaign{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: nullable(req.Description),
		GameSystem:  req.GameSystem,
		Image:       nullable(req.Image),
		DMID:        user.ID,
		CreatedAt:   time.Now(),
	}

	_, err := h.db.Exec(`
		INSERT INTO campaign (id, name, description, game_system, image, dm_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, campaign.ID, campaign.Name, campaign.Description, campaign.GameSystem,
		campaign.Image, campaign.DMID, campaign.CreatedAt)

	if err != nil {
		slog.Error("failed to insert campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create campaign")
		return
	}

	slog.Info("campaign created", "campaign_id", campaign.ID, "dm_id", user.ID)

	middleware.JSONResponse(w, http.StatusCreated, campaign)
}

// List handles GET /campaigns
// Discovery listing of all campaigns, filterable by game system and a
// free-text search over name and description.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT id, name, description, game_system, image, dm_id, created_at
		FROM campaign WHERE 1=1`
	args := []any{}

	if system := r.URL.Query().Get("system"); system != "" {
		args = append(args, system)
		query += fmt.Sprintf(" AND game_system = $%d", len(args))
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		query += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(COALESCE(description, '')) LIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY created_at DESC"

	campaigns, err := h.queryCampaigns(query, args...)
	if err != nil {
		slog.Error("failed to query campaigns", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, campaigns)
}

// Mine handles GET /campaigns/mine
func (h *CampaignHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	campaigns, err := h.queryCampaigns(`
		SELECT id, name, description, game_system, image, dm_id, created_at
		FROM campaign c
		WHERE c.dm_id = $1
		   OR EXISTS (SELECT 1 FROM campaign_player p WHERE p.campaign_id = c.id AND p.user_id = $1)
		ORDER BY created_at DESC
	`, user.ID)
	if err != nil {
		slog.Error("failed to query member campaigns", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, campaigns)
}

func (h *CampaignHandler) queryCampaigns(query string, args ...any) ([]models.Campaign, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.GameSystem, &c.Image, &c.DMID, &c.CreatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// Detail handles GET /campaigns/{id}
// Everything a campaign page needs in one response: roster, characters,
// quests, NPCs, upcoming and recent sessions, open polls, and the same
// pending-action count the global /pending endpoint computes, scoped to
// this campaign.
func (h *CampaignHandler) Detail(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}
	now := time.Now()

	detail := models.CampaignDetail{
		Campaign: campaign,
		IsDM:     user.ID == campaign.DMID,
	}

	var err error
	detail.Players, err = h.campaignPlayers(campaign.ID)
	if err != nil {
		slog.Error("failed to query players", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	detail.Characters, err = campaignCharacters(h.db, campaign.ID)
	if err != nil {
		slog.Error("failed to query characters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	detail.Quests, err = queryQuests(h.db, `
		SELECT id, campaign_id, title, description, reward, status, priority, is_main, tags,
		       created_by, created_at, updated_at
		FROM quest WHERE campaign_id = $1
		ORDER BY status, priority
	`, campaign.ID)
	if err != nil {
		slog.Error("failed to query quests", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	detail.NPCs, err = queryNPCs(h.db, `
		SELECT id, campaign_id, name, race, age, gender, appearance, personality,
		       background, notes, tags, is_important, image, created_by, created_at, updated_at
		FROM npc WHERE campaign_id = $1
		ORDER BY name
	`, campaign.ID)
	if err != nil {
		slog.Error("failed to query npcs", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	campaignNames := map[string]string{campaign.ID: campaign.Name}
	detail.Upcoming, err = upcomingSessions(h.db, user.ID, []string{campaign.ID}, campaignNames, now)
	if err != nil {
		slog.Error("failed to query upcoming sessions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	detail.Past, err = h.pastSessions(campaign.ID, now)
	if err != nil {
		slog.Error("failed to query past sessions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	detail.OpenPolls, err = openPolls(h.db, user.ID, []string{campaign.ID}, campaignNames, false)
	if err != nil {
		slog.Error("failed to query open polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Advisory count; degrades to zero per term on failure.
	detail.PendingActions = pendingCount(h.db, user.ID, []string{campaign.ID}, now)

	middleware.JSONResponse(w, http.StatusOK, detail)
}

func (h *CampaignHandler) campaignPlayers(campaignID string) ([]models.User, error) {
	rows, err := h.db.Query(`
		SELECT u.id, u.provider_uid, u.username, u.email, u.full_name, u.bio, u.profile_pic,
		       u.is_admin, u.is_approved, u.created_at, u.last_login
		FROM campaign_player p
		JOIN users u ON u.id = p.user_id
		WHERE p.campaign_id = $1
		ORDER BY p.joined_at
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.ProviderUID, &u.Username, &u.Email, &u.FullName,
			&u.Bio, &u.ProfilePic, &u.IsAdmin, &u.IsApproved, &u.CreatedAt, &u.LastLogin); err != nil {
			return nil, err
		}
		players = append(players, u)
	}
	return players, rows.Err()
}

func (h *CampaignHandler) pastSessions(campaignID string, now time.Time) ([]models.Session, error) {
	rows, err := h.db.Query(`
		SELECT id, campaign_id, title, scheduled_at, location, notes, created_by, created_at
		FROM session
		WHERE campaign_id = $1 AND scheduled_at < $2
		ORDER BY scheduled_at DESC
		LIMIT 5
	`, campaignID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.CampaignID, &s.Title, &s.ScheduledAt,
			&s.Location, &s.Notes, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AddPlayer handles POST /campaigns/{id}/players
func (h *CampaignHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireDM(h.db, w, r)
	if !ok {
		return
	}

	var req models.AddPlayerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UserID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}
	// The DM is never a player in their own campaign.
	if req.UserID == campaign.DMID {
		middleware.ErrorResponse(w, http.StatusBadRequest, "The DM cannot join as a player")
		return
	}

	var exists bool
	err := h.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, req.UserID).Scan(&exists)
	if err != nil {
		slog.Error("failed to check user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO campaign_player (campaign_id, user_id, joined_at)
		VALUES ($1, $2, $3)
	`, campaign.ID, req.UserID, time.Now())

	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Already a player in this campaign")
			return
		}
		slog.Error("failed to add player", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add player")
		return
	}

	slog.Info("player added", "campaign_id", campaign.ID, "user_id", req.UserID)
	middleware.JSONResponse(w, http.StatusCreated, map[string]bool{"added": true})
}

// RemovePlayer handles DELETE /campaigns/{id}/players/{userID}
func (h *CampaignHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireDM(h.db, w, r)
	if !ok {
		return
	}

	userID := r.PathValue("userID")
	res, err := h.db.Exec(`
		DELETE FROM campaign_player WHERE campaign_id = $1 AND user_id = $2
	`, campaign.ID, userID)
	if err != nil {
		slog.Error("failed to remove player", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to remove player")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Not a player in this campaign")
		return
	}

	slog.Info("player removed", "campaign_id", campaign.ID, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
