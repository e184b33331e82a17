package models

import "time"

// Contact is one archived contact row. The (run_id, display_name, email)
// triple is unique; re-archiving the same contact is a no-op.
type Contact struct {
	ID           int       `json:"id"`
	RunID        string    `json:"run_id"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	DiscoveredAt time.Time `json:"discovered_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunSummary aggregates the archive for one run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	ContactCount int       `json:"contact_count"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}
