// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

/*
Package router defines HTTP routes for the tischrunde API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health:

	GET /health

Accounts (registration is open, admin routes require an admin account):

	POST   /auth/register            - Register with a provider token
	GET    /me                       - Current account
	PUT    /me                       - Edit own profile (full name, bio, picture)
	GET    /admin/users/pending      - Accounts waiting for approval
	POST   /admin/users/{id}/approve - Approve an account
	DELETE /admin/users/{id}         - Reject (destroy) a pending account

Campaigns:

	POST   /campaigns                        - Create (creator becomes DM)
	GET    /campaigns                        - Discovery list (?system=, ?q=)
	GET    /campaigns/mine                   - Campaigns I belong to
	GET    /campaigns/{id}                   - Full campaign page aggregate
	POST   /campaigns/{id}/players           - Add player (DM)
	DELETE /campaigns/{id}/players/{userID}  - Remove player (DM)

Characters:

	PUT /campaigns/{id}/character - Upsert own character sheet

Sessions and scheduling polls:

	POST   /campaigns/{id}/sessions                  - Plan session (DM)
	PUT    /campaigns/{id}/sessions/{sid}            - Edit session (DM)
	DELETE /campaigns/{id}/sessions/{sid}            - Cancel session (DM)
	POST   /campaigns/{id}/sessions/{sid}/rsvp       - RSVP yes/no/maybe
	POST   /campaigns/{id}/polls                     - Open poll (DM, 1-5 options)
	POST   /campaigns/{id}/polls/{pid}/vote          - Vote on an option
	POST   /campaigns/{id}/polls/{pid}/finalize      - Close poll into a session (DM)

Quests and NPCs:

	GET    /campaigns/{id}/quests                - List (?q=, ?status=, ?main=1)
	POST   /campaigns/{id}/quests                - Create
	GET    /campaigns/{id}/quests/{qid}          - Get
	PUT    /campaigns/{id}/quests/{qid}          - Edit
	POST   /campaigns/{id}/quests/{qid}/tags     - Edit tags (DM or creator)
	POST   /campaigns/{id}/quests/{qid}/status   - Toggle open/done
	GET    /campaigns/{id}/npcs                  - List (?q=, ?important=1)
	POST   /campaigns/{id}/npcs                  - Create
	GET    /campaigns/{id}/npcs/{nid}            - Get
	PUT    /campaigns/{id}/npcs/{nid}            - Edit
	DELETE /campaigns/{id}/npcs/{nid}            - Delete (DM or creator)

Chat:

	GET  /campaigns/{id}/messages - Last 50 messages, oldest first
	POST /campaigns/{id}/messages - Send (optionally in character)

Personal agenda:

	GET /schedule - Upcoming sessions and open polls across my campaigns
	GET /pending  - Count of sessions/polls waiting for my answer

# Authentication

All routes except /health and POST /auth/register run behind
middleware.RequireUser, which resolves the Authorization bearer token to an
approved account and stores it in the request context.
*/
package router
