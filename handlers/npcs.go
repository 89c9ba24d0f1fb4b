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

type NPCHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewNPCHandler(db *sql.DB, cfg cliparse.Config) *NPCHandler {
	return &NPCHandler{db: db, cfg: cfg}
}

const npcColumns = `id, campaign_id, name, race, age, gender, appearance, personality,
	background, notes, tags, is_important, image, created_by, created_at, updated_at`

// List handles GET /campaigns/{id}/npcs
// Filters: q (free text over name, race, gender, notes and tags) and
// important=1 for important NPCs only.
func (h *NPCHandler) List(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	params := r.URL.Query()

	query := `SELECT ` + npcColumns + ` FROM npc WHERE campaign_id = $1`
	args := []any{campaign.ID}

	if q := strings.TrimSpace(params.Get("q")); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		n := len(args)
		query += fmt.Sprintf(` AND (LOWER(name) LIKE $%d
			OR LOWER(COALESCE(race, '')) LIKE $%d
			OR LOWER(COALESCE(gender, '')) LIKE $%d
			OR LOWER(COALESCE(notes, '')) LIKE $%d
			OR LOWER(COALESCE(tags, '')) LIKE $%d)`, n, n, n, n, n)
	}
	if mainOnly(params.Get("important")) {
		query += " AND is_important = TRUE"
	}
	query += " ORDER BY name"

	npcs, err := queryNPCs(h.db, query, args...)
	if err != nil {
		slog.Error("failed to query NPCs", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, npcs)
}

// Create handles POST /campaigns/{id}/npcs
func (h *NPCHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	var req models.NPCRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	now := time.Now()
	npc := models.NPC{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		Name:        strings.TrimSpace(req.Name),
		Race:        nullable(req.Race),
		Age:         req.Age,
		Gender:      nullable(req.Gender),
		Appearance:  nullable(req.Appearance),
		Personality: nullable(req.Personality),
		Background:  nullable(req.Background),
		Notes:       nullable(req.Notes),
		Tags:        nullable(models.NormalizeTags(req.Tags)),
		IsImportant: req.IsImportant,
		Image:       nullable(req.Image),
		CreatedBy:   user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := h.db.Exec(`
		INSERT INTO npc (`+npcColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, npc.ID, npc.CampaignID, npc.Name, npc.Race, npc.Age, npc.Gender, npc.Appearance,
		npc.Personality, npc.Background, npc.Notes, npc.Tags, npc.IsImportant, npc.Image,
		npc.CreatedBy, npc.CreatedAt, npc.UpdatedAt)

	if err != nil {
		slog.Error("failed to insert NPC", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create NPC")
		return
	}

	slog.Info("NPC created", "campaign_id", campaign.ID, "npc_id", npc.ID)

	middleware.JSONResponse(w, http.StatusCreated, npc)
}

// Get handles GET /campaigns/{id}/npcs/{nid}
func (h *NPCHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	npc, err := loadNPC(h.db, r.PathValue("nid"), campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "NPC not found")
		return
	}
	if err != nil {
		slog.Error("failed to query NPC", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, npc)
}

// Update handles PUT /campaigns/{id}/npcs/{nid}
func (h *NPCHandler) Update(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	npc, err := loadNPC(h.db, r.PathValue("nid"), campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "NPC not found")
		return
	}
	if err != nil {
		slog.Error("failed to query NPC", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var req models.NPCRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	_, err = h.db.Exec(`
		UPDATE npc
		SET name = $1, race = $2, age = $3, gender = $4, appearance = $5, personality = $6,
		    background = $7, notes = $8, tags = $9, is_important = $10,
		    image = COALESCE($11, image), updated_at = $12
		WHERE id = $13
	`, strings.TrimSpace(req.Name), nullable(req.Race), req.Age, nullable(req.Gender),
		nullable(req.Appearance), nullable(req.Personality), nullable(req.Background),
		nullable(req.Notes), nullable(models.NormalizeTags(req.Tags)), req.IsImportant,
		nullable(req.Image), time.Now(), npc.ID)

	if err != nil {
		slog.Error("failed to update NPC", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update NPC")
		return
	}

	updated, err := loadNPC(h.db, npc.ID, campaign.ID)
	if err != nil {
		slog.Error("failed to reload NPC", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /campaigns/{id}/npcs/{nid}
// Restricted to the DM or the NPC's creator.
func (h *NPCHandler) Delete(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	npc, err := loadNPC(h.db, r.PathValue("nid"), campaign.ID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "NPC not found")
		return
	}
	if err != nil {
		slog.Error("failed to query NPC", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if user.ID != campaign.DMID && user.ID != npc.CreatedBy {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the DM or the NPC creator may delete it")
		return
	}

	if _, err := h.db.Exec(`DELETE FROM npc WHERE id = $1`, npc.ID); err != nil {
		slog.Error("failed to delete NPC", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete NPC")
		return
	}

	slog.Info("NPC deleted", "campaign_id", campaign.ID, "npc_id", npc.ID)
	w.WriteHeader(http.StatusNoContent)
}

func loadNPC(db *sql.DB, npcID, campaignID string) (models.NPC, error) {
	var n models.NPC
	err := db.QueryRow(`
		SELECT `+npcColumns+` FROM npc WHERE id = $1 AND campaign_id = $2
	`, npcID, campaignID).Scan(&n.ID, &n.CampaignID, &n.Name, &n.Race, &n.Age, &n.Gender,
		&n.Appearance, &n.Personality, &n.Background, &n.Notes, &n.Tags, &n.IsImportant,
		&n.Image, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func queryNPCs(db *sql.DB, query string, args ...any) ([]models.NPC, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	npcs := []models.NPC{}
	for rows.Next() {
		var n models.NPC
		if err := rows.Scan(&n.ID, &n.CampaignID, &n.Name, &n.Race, &n.Age, &n.Gender,
			&n.Appearance, &n.Personality, &n.Background, &n.Notes, &n.Tags, &n.IsImportant,
			&n.Image, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		npcs = append(npcs, n)
	}
	return npcs, rows.Err()
}
