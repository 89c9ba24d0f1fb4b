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

type QuestHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewQuestHandler(db *sql.DB, cfg cliparse.Config) *QuestHandler {
	return &QuestHandler{db: db, cfg: cfg}
}

// List handles GET /campaigns/{id}/quests
// Filters: q (free text over title/description/tags), status (defaults to
// "open"; pass status= explicitly for everything), main=1 for main quests.
// Status comparison trims and lowercases the stored value because legacy
// rows carry inconsistent casing.
func (h *QuestHandler) List(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	params := r.URL.Query()

	status := models.QuestStatusOpen
	if params.Has("status") {
		status = models.NormalizeQuestFilter(params.Get("status"))
	}

	query := `
		SELECT id, campaign_id, title, description, reward, status, priority, is_main, tags,
		       created_by, created_at, updated_at
		FROM quest WHERE campaign_id = $1`
	args := []any{campaign.ID}

	if q := strings.TrimSpace(params.Get("q")); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		n := len(args)
		query += fmt.Sprintf(` AND (LOWER(title) LIKE $%d
			OR LOWER(COALESCE(description, '')) LIKE $%d
			OR LOWER(COALESCE(tags, '')) LIKE $%d)`, n, n, n)
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND LOWER(TRIM(status)) = $%d", len(args))
	}
	if mainOnly(params.Get("main")) {
		query += " AND is_main = TRUE"
	}
	query += " ORDER BY is_main DESC, priority DESC, created_at DESC"

	quests, err := queryQuests(h.db, query, args...)
	if err != nil {
		slog.Error("failed to query quests", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, quests)
}

func mainOnly(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on":
		return true
	}
	return false
}

// Create handles POST /campaigns/{id}/quests
func (h *QuestHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	var req models.QuestRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}
	now := time.Now()

	quest := models.Quest{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: nullable(req.Description),
		Reward:      nullable(req.Reward),
		Status:      models.NormalizeQuestStatus(req.Status),
		Priority:    priority,
		IsMain:      req.IsMain,
		Tags:        nullable(models.NormalizeTags(req.Tags)),
		CreatedBy:   user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := h.db.Exec(`
		INSERT INTO quest (id, campaign_id, title, description, reward, status, priority, is_main, tags, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, quest.ID, quest.CampaignID, quest.Title, quest.Description, quest.Reward,
		quest.Status, quest.Priority, quest.IsMain, quest.Tags, quest.CreatedBy,
		quest.CreatedAt, quest.UpdatedAt)

	if err != nil {
		slog.Error("failed to insert quest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create quest")
		return
	}

	slog.Info("quest created", "campaign_id", campaign.ID, "quest_id", quest.ID)

	middleware.JSONResponse(w, http.StatusCreated, quest)
}

// Get handles GET /campaigns/{id}/quests/{qid}
func (h *QuestHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	quest, err := loadQuest(h.db, r.PathValue("qid"), campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Quest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query quest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, quest)
}

// Update handles PUT /campaigns/{id}/quests/{qid}
func (h *QuestHandler) Update(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	quest, err := loadQuest(h.db, r.PathValue("qid"), campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Quest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query quest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var req models.QuestRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}

	_, err = h.db.Exec(`
		UPDATE quest
		SET title = $1, description = $2, reward = $3, status = $4, priority = $5,
		    is_main = $6, tags = $7, updated_at = $8
		WHERE id = $9
	`, strings.TrimSpace(req.Title), nullable(req.Description), nullable(req.Reward),
		models.NormalizeQuestStatus(req.Status), priority, req.IsMain,
		nullable(models.NormalizeTags(req.Tags)), time.Now(), quest.ID)

	if err != nil {
		slog.Error("failed to update quest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update quest")
		return
	}

	updated, err := loadQuest(h.db, quest.ID, campaign.ID)
	if err != nil {
		slog.Error("failed to reload quest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, updated)
}

// UpdateTags handles POST /campaigns/{id}/quests/{qid}/tags
// Unlike the rest of the quest fields, tags may only be edited by the DM
// or the quest's creator.
func (h *QuestHandler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	quest, err := loadQuest(h.db, r.PathValue("qid"), campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Quest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query quest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if user.ID != campaign.DMID && user.ID != quest.CreatedBy {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the DM or the quest creator may edit tags")
		return
	}

	var req models.UpdateTagsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	tags := models.NormalizeTags(req.Tags)
	_, err = h.db.Exec(`
		UPDATE quest SET tags = $1, updated_at = $2 WHERE id = $3
	`, nullable(tags), time.Now(), quest.ID)
	if err != nil {
		slog.Error("failed to update quest tags", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update tags")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]string{"tags": tags})
}

// UpdateStatus handles POST /campaigns/{id}/quests/{qid}/status
// Only the two canonical values are accepted here; this is the quick
// open/done toggle, not a general edit.
func (h *QuestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	quest, err := loadQuest(h.db, r.PathValue("qid"), campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Quest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query quest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var req models.UpdateStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Status != models.QuestStatusOpen && req.Status != models.QuestStatusDone {
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be open or done")
		return
	}

	_, err = h.db.Exec(`
		UPDATE quest SET status = $1, updated_at = $2 WHERE id = $3
	`, req.Status, time.Now(), quest.ID)
	if err != nil {
		slog.Error("failed to update quest status", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": req.Status})
}

func loadQuest(db *sql.DB, questID, campaignID string) (models.Quest, error) {
	var q models.Quest
	err := db.QueryRow(`
		SELECT id, campaign_id, title, description, reward, status, priority, is_main, tags,
		       created_by, created_at, updated_at
		FROM quest WHERE id = $1 AND campaign_id = $2
	`, questID, campaignID).Scan(&q.ID, &q.CampaignID, &q.Title, &q.Description, &q.Reward,
		&q.Status, &q.Priority, &q.IsMain, &q.Tags, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func queryQuests(db *sql.DB, query string, args ...any) ([]models.Quest, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quests := []models.Quest{}
	for rows.Next() {
		var q models.Quest
		if err := rows.Scan(&q.ID, &q.CampaignID, &q.Title, &q.Description, &q.Reward,
			&q.Status, &q.Priority, &q.IsMain, &q.Tags, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}
