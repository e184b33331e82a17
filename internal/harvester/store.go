package harvester

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"linkedin-harvester/pkg/types"
)

// ResultStore accumulates the contacts discovered during one run. It is
// append-only: records are deduplicated on (name, email) and never removed
// or rewritten until Reset. Flush appends only the lines it is handed, so
// previously flushed records are never re-read or re-written.
type ResultStore struct {
	mu      sync.Mutex
	runID   string
	path    string
	seen    map[types.ContactRecord]bool
	records []types.ContactRecord
}

func NewResultStore(runID, resultsDir string) *ResultStore {
	return &ResultStore{
		runID: runID,
		path:  filepath.Join(resultsDir, runID+".txt"),
		seen:  make(map[types.ContactRecord]bool),
	}
}

// Add appends the records that are not already present and returns them.
// Already-present records are a no-op.
func (rs *ResultStore) Add(records ...types.ContactRecord) []types.ContactRecord {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	var delta []types.ContactRecord
	for _, rec := range records {
		if rs.seen[rec] {
			continue
		}
		rs.seen[rec] = true
		rs.records = append(rs.records, rec)
		delta = append(delta, rec)
	}
	return delta
}

// Snapshot returns the accumulated records in insertion order.
func (rs *ResultStore) Snapshot() []types.ContactRecord {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	out := make([]types.ContactRecord, len(rs.records))
	copy(out, rs.records)
	return out
}

func (rs *ResultStore) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.records)
}

// Path is where Flush writes. The file only exists once a non-empty delta
// has been flushed.
func (rs *ResultStore) Path() string {
	return rs.path
}

// Flush appends the given delta to the run's result file, one contact per
// line, creating the directory and file on first use.
func (rs *ResultStore) Flush(delta []types.ContactRecord) error {
	if len(delta) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(rs.path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	file, err := os.OpenFile(rs.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open result file: %w", err)
	}
	defer file.Close()

	for _, rec := range delta {
		if _, err := file.WriteString(formatContactLine(rec) + "\n"); err != nil {
			return fmt.Errorf("failed to write result file: %w", err)
		}
	}
	return nil
}

// Reset clears the store for a fresh run with the same id.
func (rs *ResultStore) Reset() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.seen = make(map[types.ContactRecord]bool)
	rs.records = nil
}

func formatContactLine(rec types.ContactRecord) string {
	if rec.DisplayName == "" || rec.DisplayName == types.UnknownName {
		return rec.Email
	}
	return rec.DisplayName + " - " + rec.Email
}

// ReadResultFile parses a run's sink file back into records. Lines are
// either "name - email" or a bare email.
func ReadResultFile(path string) ([]types.ContactRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []types.ContactRecord
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx := strings.LastIndex(line, " - "); idx > 0 {
			records = append(records, types.ContactRecord{
				DisplayName: line[:idx],
				Email:       line[idx+3:],
			})
		} else {
			records = append(records, types.ContactRecord{
				DisplayName: types.UnknownName,
				Email:       line,
			})
		}
	}
	return records, nil
}
