// Package visibility derives what a viewer may see of a candidate's timeline.
// It filters at read time and never removes anything from the store.
package visibility

import (
	"strings"

	"github.com/gartstein/redflag/internal/registry/models"
)

// acknowledgments are notes that only restate an approval. Entries ingested
// before EntryKind existed carry these instead of KindStatusTransition.
var acknowledgments = map[string]struct{}{
	"approved":           {},
	"status: approved":   {},
	"status approved":    {},
	"candidate approved": {},
	"profile approved":   {},
	"account approved":   {},
	"verified":           {},
}

// IsAcknowledgment reports whether notes is a pure status acknowledgment.
func IsAcknowledgment(notes string) bool {
	_, ok := acknowledgments[normalize(notes)]
	return ok
}

func normalize(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, ".!")
}

// Visible reports whether viewer may see entry.
func Visible(viewer models.ActorRole, entry *models.TimelineEntry) bool {
	if viewer == models.RoleAdmin || entry.AuthorRole != models.RoleAdmin {
		return true
	}
	if !entry.Update.IsEmpty() {
		return true
	}
	if entry.Kind == models.KindStatusTransition {
		return false
	}
	return !IsAcknowledgment(entry.Notes)
}

// Filter returns the entries viewer may see, preserving order.
func Filter(viewer models.ActorRole, entries []models.TimelineEntry) []models.TimelineEntry {
	out := make([]models.TimelineEntry, 0, len(entries))
	for i := range entries {
		if Visible(viewer, &entries[i]) {
			out = append(out, entries[i])
		}
	}
	return out
}
