// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

/*
Package handlers contains HTTP request handlers for the tischrunde API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - UserHandler: Registration, profile editing, approval queue, admin actions
  - CampaignHandler: Campaign lifecycle, roster, the detail aggregate
  - CharacterHandler: One character sheet per member per campaign
  - SessionHandler: Session planning and RSVPs
  - PollHandler: Scheduling polls, votes, finalization
  - QuestHandler: Quest log with tags and status
  - NPCHandler: NPC compendium
  - ChatHandler: Campaign chat
  - ScheduleHandler: Cross-campaign agenda and pending count

Handlers are created via constructor functions that accept *sql.DB and Config:

	campaignHandler := handlers.NewCampaignHandler(db, cfg)

# Access Control

access.go holds the shared predicates. Campaign access means being the DM
or a listed player; requireMember and requireDM load the campaign from the
{id} path value and write the error response themselves on failure. Every
mutation checks access before touching data.

# RSVP and Vote Protocol

session_response and poll_vote share one upsert protocol, implemented once
in upsertResponse: one row per (subject, user), a repeat answer overwrites
the previous one and refreshes updated_at, created_at is set once. The
composite primary key backs this up against concurrent requests.

# Poll Finalization

Finalize turns a poll option into a real session and closes the poll in a
single transaction. The UPDATE carries "AND is_closed = FALSE" so only one
of two concurrent finalize requests can win; the loser observes zero
affected rows and rolls back its session insert.

# Pending Actions

pendingCount is the one definition of "waiting on me": future sessions
without my RSVP plus open polls where at least one option has no vote from
me. The campaign detail page and the global /pending endpoint both call it,
so the numbers always agree.
*/
package handlers
