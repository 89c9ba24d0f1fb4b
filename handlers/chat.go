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

type ChatHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewChatHandler(db *sql.DB, cfg cliparse.Config) *ChatHandler {
	return &ChatHandler{db: db, cfg: cfg}
}

// List handles GET /campaigns/{id}/messages
// Returns the 50 most recent messages, oldest first. Sender names resolve
// to the DM label for the DM, otherwise the character name if the message
// was sent in character, otherwise the user's display name. A deleted
// character leaves its messages behind with the user name as fallback.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	campaign, _, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	rows, err := h.db.Query(`
		SELECT m.id, m.campaign_id, m.user_id, m.character_id, m.content, m.created_at,
		       u.username, u.full_name, c.name
		FROM message m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN character_sheet c ON c.id = m.character_id
		WHERE m.campaign_id = $1
		ORDER BY m.created_at DESC
		LIMIT 50
	`, campaign.ID)
	if err != nil {
		slog.Error("failed to query messages", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var username string
		var fullName, characterName *string
		if err := rows.Scan(&m.ID, &m.CampaignID, &m.UserID, &m.CharacterID, &m.Content,
			&m.CreatedAt, &username, &fullName, &characterName); err != nil {
			slog.Error("failed to scan message", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		m.IsDM = m.UserID == campaign.DMID
		switch {
		case m.IsDM:
			m.SenderName = "DM"
		case characterName != nil && *characterName != "":
			m.SenderName = *characterName
		default:
			m.SenderName = displayName(fullName, username)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read messages", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Query newest-first to get the tail, serve oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	middleware.JSONResponse(w, http.StatusOK, messages)
}

// Send handles POST /campaigns/{id}/messages
// An optional character_id lets a player speak in character; it has to be
// the sender's own character in this campaign.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	campaign, user, ok := requireMember(h.db, w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "content is required")
		return
	}

	var characterID *string
	var characterName *string
	if req.CharacterID != "" {
		var id, name string
		err := h.db.QueryRow(`
			SELECT id, name FROM character_sheet
			WHERE id = $1 AND user_id = $2 AND campaign_id = $3
		`, req.CharacterID, user.ID, campaign.ID).Scan(&id, &name)
		if err == sql.ErrNoRows {
			middleware.ErrorResponse(w, http.StatusNotFound, "Character not found")
			return
		}
		if err != nil {
			slog.Error("failed to query character", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		characterID = &id
		characterName = &name
	}

	message := models.Message{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		UserID:      user.ID,
		CharacterID: characterID,
		Content:     content,
		IsDM:        user.ID == campaign.DMID,
		CreatedAt:   time.Now(),
	}
	switch {
	case message.IsDM:
		message.SenderName = "DM"
	case characterName != nil:
		message.SenderName = *characterName
	default:
		message.SenderName = user.DisplayName()
	}

	_, err := h.db.Exec(`
		INSERT INTO message (id, campaign_id, user_id, character_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, message.ID, message.CampaignID, message.UserID, message.CharacterID,
		message.Content, message.CreatedAt)
	if err != nil {
		slog.Error("failed to insert message", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, message)
}
