// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

/*
Package db creates the database schema.

# Tables

  - users: accounts keyed by the identity provider's subject id
  - campaign: one DM (dm_id), many players via campaign_player
  - campaign_player: membership rows; the DM is never a player
  - character_sheet: at most one per (user, campaign)
  - session: scheduled game sessions
  - session_response: RSVP rows, one per (session, user)
  - session_poll / poll_option / poll_vote: scheduling polls
  - quest, npc: campaign registries with normalized tag strings
  - message: append-only chat log

# Constraints

Primary keys double as the upsert keys the handlers rely on:

  - session_response (session_id, user_id)
  - poll_vote (option_id, user_id)
  - character_sheet UNIQUE (user_id, campaign_id)
  - campaign_player (campaign_id, user_id)

Everything owned by a campaign cascades on campaign deletion.
message.character_id is ON DELETE SET NULL so old chat lines keep
rendering (with the username as fallback) after a character is removed.

# Portability

The same DDL runs on Postgres (lib/pq) and sqlite (modernc.org/sqlite):
no NOW() defaults, no serial columns, text UUID primary keys.
*/
package db
