// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package models

import "strings"

// NormalizeTags trims each candidate, drops empties, de-duplicates
// case-insensitively while keeping first-seen order and casing, and joins
// with ", ". Shared by quests and NPCs so both store identical tag strings.
func NormalizeTags(parts []string) string {
	seen := make(map[string]bool, len(parts))
	normed := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		normed = append(normed, p)
	}
	return strings.Join(normed, ", ")
}

// NormalizeQuestStatus maps raw input to a canonical status. Legacy rows
// carry arbitrary casing and whitespace; anything that is not "done" after
// trimming and lowercasing counts as "open".
func NormalizeQuestStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case QuestStatusDone:
		return QuestStatusDone
	default:
		return QuestStatusOpen
	}
}

// NormalizeQuestFilter validates a status filter param. Empty string means
// no filter; unknown values fall back to "open" for backward compatibility
// with old bookmarked URLs.
func NormalizeQuestFilter(s string) string {
	switch s {
	case QuestStatusOpen, QuestStatusDone, "":
		return s
	default:
		return QuestStatusOpen
	}
}
