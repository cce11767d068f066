package dto

import (
	"encoding/json"
	"time"

	"bizdesk/internal/infrastructure/storage/postgres"
)

// AuditEntryResponse represents one change log entry.
type AuditEntryResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Operator  string          `json:"operator,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromAuditEntries maps decoded audit entries.
func FromAuditEntries(entries []postgres.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID.String(),
			Action:    string(e.Action),
			Operator:  e.Operator,
			Changes:   e.Changes,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
