package database

import (
	"fmt"
	"time"

	"linkedin-harvester/internal/database/models"
	"linkedin-harvester/pkg/types"
)

// SaveContacts archives a run's delta. Conflicting rows (same run, name and
// email) are left untouched so repeated flushes stay idempotent.
func (db *DB) SaveContacts(runID string, records []types.ContactRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
        INSERT INTO contacts (run_id, display_name, email, discovered_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (run_id, display_name, email) DO NOTHING
    `

	now := time.Now()
	for _, rec := range records {
		name := rec.DisplayName
		if name == "" {
			name = types.UnknownName
		}
		if _, err := db.conn.Exec(query, runID, name, rec.Email, now); err != nil {
			return fmt.Errorf("failed to save contact %s: %w", rec.Email, err)
		}
	}
	return nil
}

// GetContactsByRun returns a run's archived contacts in discovery order.
func (db *DB) GetContactsByRun(runID string, limit int) ([]*models.Contact, error) {
	query := `
        SELECT id, run_id, display_name, email, discovered_at, created_at
        FROM contacts
        WHERE run_id = $1
        ORDER BY id ASC
        LIMIT $2`

	rows, err := db.conn.Query(query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		contact := &models.Contact{}
		err := rows.Scan(
			&contact.ID, &contact.RunID, &contact.DisplayName,
			&contact.Email, &contact.DiscoveredAt, &contact.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	return contacts, rows.Err()
}

// GetRunSummaries lists the most recent runs present in the archive.
func (db *DB) GetRunSummaries(limit int) ([]*models.RunSummary, error) {
	query := `
        SELECT run_id, COUNT(*), MIN(discovered_at), MAX(discovered_at)
        FROM contacts
        GROUP BY run_id
        ORDER BY MAX(discovered_at) DESC
        LIMIT $1`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*models.RunSummary
	for rows.Next() {
		summary := &models.RunSummary{}
		err := rows.Scan(&summary.RunID, &summary.ContactCount, &summary.FirstSeen, &summary.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// CountContacts returns the total number of archived contacts.
func (db *DB) CountContacts() (int, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM contacts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}
