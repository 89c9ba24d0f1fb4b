// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tischrunde/tischrunde/cliparse"
	"github.com/tischrunde/tischrunde/middleware"
	"github.com/tischrunde/tischrunde/models"
)

type CharacterHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewCharacterHandler(db *sql.DB, cfg cliparse.Config) *CharacterHandler {
	return &CharacterHandler{db: db, cfg: cfg}
}

// Upsert handles PUT /campaigns/{id}/character
// Each member has at most one character per campaign; a second save
// updates the existing sheet. The unique constraint on
// (user_id, campaign_id) backs this up against races.
func (h *CharacterHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	var req models.UpsertCharacterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	now := time.Now()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var characterID string
	err = tx.QueryRow(`
		SELECT id FROM character_sheet WHERE user_id = $1 AND campaign_id = $2
	`, user.ID, campaign.ID).Scan(&characterID)

	created := err == sql.ErrNoRows
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to query character", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if created {
		characterID = uuid.NewString()
		_, err = tx.Exec(`
			INSERT INTO character_sheet (id, user_id, campaign_id, name, char_class, level, race, description, image, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, characterID, user.ID, campaign.ID, req.Name, nullable(req.Class), req.Level,
			nullable(req.Race), nullable(req.Description), nullable(req.Image), now, now)
	} else {
		// A save without a new image keeps the old one.
		_, err = tx.Exec(`
			UPDATE character_sheet
			SET name = $1, char_class = $2, level = $3, race = $4, description = $5,
			    image = COALESCE($6, image), updated_at = $7
			WHERE id = $8
		`, req.Name, nullable(req.Class), req.Level, nullable(req.Race),
			nullable(req.Description), nullable(req.Image), now, characterID)
	}

	if err != nil {
		slog.Error("failed to save character", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save character")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save character")
		return
	}

	character, err := loadCharacter(h.db, characterID)
	if err != nil {
		slog.Error("failed to reload character", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("character saved", "campaign_id", campaign.ID, "user_id", user.ID, "created", created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	middleware.JSONResponse(w, status, character)
}

func loadCharacter(db *sql.DB, characterID string) (models.Character, error) {
	var c models.Character
	err := db.QueryRow(`
		SELECT id, user_id, campaign_id, name, char_class, level, race, description, image, created_at, updated_at
		FROM character_sheet WHERE id = $1
	`, characterID).Scan(&c.ID, &c.UserID, &c.CampaignID, &c.Name, &c.Class, &c.Level,
		&c.Race, &c.Description, &c.Image, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func campaignCharacters(db *sql.DB, campaignID string) ([]models.Character, error) {
	rows, err := db.Query(`
		SELECT id, user_id, campaign_id, name, char_class, level, race, description, image, created_at, updated_at
		FROM character_sheet
		WHERE campaign_id = $1
		ORDER BY name
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	characters := []models.Character{}
	for rows.Next() {
		var c models.Character
		if err := rows.Scan(&c.ID, &c.UserID, &c.CampaignID, &c.Name, &c.Class, &c.Level,
			&c.Race, &c.Description, &c.Image, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		characters = append(characters, c)
	}
	return characters, rows.Err()
}
