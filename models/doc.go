// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

  - User: account with admin/approval flags; DM vs player is contextual
    per campaign, never stored on the user
  - Campaign: one DM plus players (campaign_player rows)
  - Character: one sheet per (user, campaign)
  - Session / SessionPoll / PollOption: scheduling
  - Quest / NPC: campaign registries with normalized tags
  - Message: chat line with resolved sender name

# Constants

RSVP and vote values:

	ResponseYes   = "yes"
	ResponseNo    = "no"
	ResponseMaybe = "maybe"

Quest status values:

	QuestStatusOpen = "open"
	QuestStatusDone = "done"

# Normalization

NormalizeTags and NormalizeQuestStatus implement the write-side cleanup
both quests and NPCs share. See normalize.go.
*/
package models
