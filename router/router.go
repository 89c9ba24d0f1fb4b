// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/tischrunde/tischrunde/cliparse"
	"github.com/tischrunde/tischrunde/handlers"
	"github.com/tischrunde/tischrunde/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(db, cfg)
	campaignHandler := handlers.NewCampaignHandler(db, cfg)
	characterHandler := handlers.NewCharacterHandler(db, cfg)
	sessionHandler := handlers.NewSessionHandler(db, cfg)
	pollHandler := handlers.NewPollHandler(db, cfg)
	questHandler := handlers.NewQuestHandler(db, cfg)
	npcHandler := handlers.NewNPCHandler(db, cfg)
	chatHandler := handlers.NewChatHandler(db, cfg)
	scheduleHandler := handlers.NewScheduleHandler(db, cfg)

	// Every route except registration and the health check runs behind
	// RequireUser, which resolves the bearer token to an approved account.
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireUser(db, cfg.TokenSecret, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Account lifecycle
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(userHandler.Register))
	mux.HandleFunc("GET /me", authed(userHandler.Me))
	mux.HandleFunc("PUT /me", authed(userHandler.UpdateMe))
	mux.HandleFunc("GET /admin/users/pending", authed(userHandler.PendingUsers))
	mux.HandleFunc("POST /admin/users/{id}/approve", authed(userHandler.Approve))
	mux.HandleFunc("DELETE /admin/users/{id}", authed(userHandler.Reject))

	// Campaigns
	mux.HandleFunc("POST /campaigns", authed(campaignHandler.Create))
	mux.HandleFunc("GET /campaigns", authed(campaignHandler.List))
	mux.HandleFunc("GET /campaigns/mine", authed(campaignHandler.Mine))
	mux.HandleFunc("GET /campaigns/{id}", authed(campaignHandler.Detail))
	mux.HandleFunc("POST /campaigns/{id}/players", authed(campaignHandler.AddPlayer))
	mux.HandleFunc("DELETE /campaigns/{id}/players/{userID}", authed(campaignHandler.RemovePlayer))

	// Characters
	mux.HandleFunc("PUT /campaigns/{id}/character", authed(characterHandler.Upsert))

	// Sessions and RSVPs
	mux.HandleFunc("POST /campaigns/{id}/sessions", authed(sessionHandler.Create))
	mux.HandleFunc("PUT /campaigns/{id}/sessions/{sid}", authed(sessionHandler.Update))
	mux.HandleFunc("DELETE /campaigns/{id}/sessions/{sid}", authed(sessionHandler.Delete))
	mux.HandleFunc("POST /campaigns/{id}/sessions/{sid}/rsvp", authed(sessionHandler.RSVP))

	// Scheduling polls
	mux.HandleFunc("POST /campaigns/{id}/polls", authed(pollHandler.Create))
	mux.HandleFunc("POST /campaigns/{id}/polls/{pid}/vote", authed(pollHandler.Vote))
	mux.HandleFunc("POST /campaigns/{id}/polls/{pid}/finalize", authed(pollHandler.Finalize))

	// Quests
	mux.HandleFunc("GET /campaigns/{id}/quests", authed(questHandler.List))
	mux.HandleFunc("POST /campaigns/{id}/quests", authed(questHandler.Create))
	mux.HandleFunc("GET /campaigns/{id}/quests/{qid}", authed(questHandler.Get))
	mux.HandleFunc("PUT /campaigns/{id}/quests/{qid}", authed(questHandler.Update))
	mux.HandleFunc("POST /campaigns/{id}/quests/{qid}/tags", authed(questHandler.UpdateTags))
	mux.HandleFunc("POST /campaigns/{id}/quests/{qid}/status", authed(questHandler.UpdateStatus))

	// NPCs
	mux.HandleFunc("GET /campaigns/{id}/npcs", authed(npcHandler.List))
	mux.HandleFunc("POST /campaigns/{id}/npcs", authed(npcHandler.Create))
	mux.HandleFunc("GET /campaigns/{id}/npcs/{nid}", authed(npcHandler.Get))
	mux.HandleFunc("PUT /campaigns/{id}/npcs/{nid}", authed(npcHandler.Update))
	mux.HandleFunc("DELETE /campaigns/{id}/npcs/{nid}", authed(npcHandler.Delete))

	// Chat
	mux.HandleFunc("GET /campaigns/{id}/messages", authed(chatHandler.List))
	mux.HandleFunc("POST /campaigns/{id}/messages", authed(chatHandler.Send))

	// Cross-campaign agenda
	mux.HandleFunc("GET /schedule", authed(scheduleHandler.Schedule))
	mux.HandleFunc("GET /pending", authed(scheduleHandler.Pending))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tischrunde API v1"))
	})

	return mux
}
