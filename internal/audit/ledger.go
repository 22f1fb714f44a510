// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Errors returned by ledger operations.
var (
	// ErrDuplicateID indicates an append with an id already in the ledger.
	ErrDuplicateID = errors.New("audit: duplicate entry id")
	// ErrNotFound indicates no entry matched the requested id.
	ErrNotFound = errors.New("audit: entry not found")
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the ordered, within-session audit record. Appends are O(1);
// entries are ordered by creation time. The mutex guards the frontends'
// read paths against the engine's appends.
type Ledger struct {
	mu      sync.Mutex
	entries []*Entry
	ids     map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		ids: make(map[string]struct{}),
	}
}

// Append adds an entry. The entry id must be unique across the ledger.
func (l *Ledger) Append(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.ids[entry.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, entry.ID)
	}
	l.ids[entry.ID] = struct{}{}
	l.entries = append(l.entries, entry)
	return nil
}

// FindMostRecentByID returns the most recent entry with the given id,
// scanning backward from the newest. Ids should never repeat, but scanning
// most-recent-first resolves any theoretical ambiguity deterministically -
// review resolution always targets the latest pending match.
func (l *Ledger) FindMostRecentByID(id string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ID == id {
			return l.entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a snapshot of the ledger in creation order. The slice is
// a copy; the pointed-to entries are the live records.
func (l *Ledger) Entries() []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// =============================================================================
// PROJECTION
// =============================================================================

// ProjectionRow is the fixed display subset of an entry shown in the
// operator audit table. Raw draft text and the serialized evaluation stay
// out of the table; they remain available through export.
type ProjectionRow struct {
	Time            string
	ID              string
	Risk            string
	Decision        string
	FlaggedVector   string
	Explanation     string
	HighlightedText string
}

// Projection returns display rows for every entry in creation order.
func (l *Ledger) Projection() []ProjectionRow {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows := make([]ProjectionRow, 0, len(l.entries))
	for _, e := range l.entries {
		rows = append(rows, ProjectionRow{
			Time:            e.Time.Format("15:04:05"),
			ID:              e.ID,
			Risk:            string(e.Risk),
			Decision:        e.Decision,
			FlaggedVector:   string(e.FlaggedVector),
			Explanation:     e.Explanation,
			HighlightedText: e.HighlightedText,
		})
	}
	return rows
}

// =============================================================================
// EXPORT
// =============================================================================

// Export serializes the full ledger, all fields included, as indented
// JSON. The output round-trips losslessly through ParseExport.
func (l *Ledger) Export() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.entries == nil {
		return json.MarshalIndent([]*Entry{}, "", "  ")
	}
	return json.MarshalIndent(l.entries, "", "  ")
}

// ParseExport decodes an exported audit document back into entries.
func ParseExport(data []byte) ([]*Entry, error) {
	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("audit: invalid export document: %w", err)
	}
	return entries, nil
}

// ExportFilename returns the download name for an export created now,
// e.g. "audit_log_20250901_153000.json".
func ExportFilename(now time.Time) string {
	return "audit_log_" + now.Format("20060102_150405") + ".json"
}
