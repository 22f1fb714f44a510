// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package review serializes human handling of intercepted drafts. The
// queue holds at most one pending item; while it is occupied, the routing
// engine rejects new customer input. That invariant is what makes turn
// processing sequential within a session.
package review

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/riskgate/internal/audit"
	"github.com/jeranaias/riskgate/internal/risk"
	"github.com/jeranaias/riskgate/internal/session"
)

// Errors returned by queue operations.
var (
	// ErrAlreadyPending indicates a submit while an item is outstanding.
	ErrAlreadyPending = errors.New("review: an item is already pending")
	// ErrNothingPending indicates a resolve with no outstanding item.
	ErrNothingPending = errors.New("review: no item is pending")
)

// =============================================================================
// ITEM
// =============================================================================

// Item is one intercepted draft awaiting a human decision. ID matches the
// audit entry created for the turn.
type Item struct {
	ID    string
	Draft string
	Eval  *risk.Evaluation
}

// =============================================================================
// QUEUE
// =============================================================================

// Queue gates a session on exactly one pending review at a time. It
// resolves items against the session's ledger and transcript, so each
// session owns its own Queue instance. The mutex guards the frontends'
// pending checks against the engine's submits.
type Queue struct {
	ledger  *audit.Ledger
	session *session.Session

	mu      sync.Mutex
	pending *Item
}

// NewQueue creates a queue bound to the session's ledger and transcript.
func NewQueue(ledger *audit.Ledger, sess *session.Session) *Queue {
	return &Queue{
		ledger:  ledger,
		session: sess,
	}
}

// Submit places an intercepted draft into the queue. Fails if an item is
// already pending - the at-most-one invariant.
func (q *Queue) Submit(item *Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending != nil {
		return fmt.Errorf("%w (id %s)", ErrAlreadyPending, q.pending.ID)
	}
	q.pending = item
	return nil
}

// Pending returns the outstanding item, or nil.
func (q *Queue) Pending() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// HasPending reports whether an item is outstanding.
func (q *Queue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending != nil
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolution describes a completed human review.
type Resolution struct {
	// EntryID is the audit entry the resolution was recorded on.
	EntryID string
	// Action is human_approved_as_is or human_edited_and_approved.
	Action string
	// FinalResponse is the text appended to the customer transcript.
	FinalResponse string
}

// Resolve completes the pending review with the reviewer's (possibly
// edited) text. The human action is classified by comparing the trimmed
// edited text to the trimmed original draft. The matching audit entry is
// mutated, the edited text is appended as an assistant turn, and the
// pending item is cleared.
//
// Calling Resolve twice fails the second time: the first call consumed the
// pending item.
func (q *Queue) Resolve(edited string) (*Resolution, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		return nil, ErrNothingPending
	}
	item := q.pending

	action := audit.HumanApprovedAsIs
	if strings.TrimSpace(edited) != strings.TrimSpace(item.Draft) {
		action = audit.HumanEditedAndApproved
	}

	entry, err := q.ledger.FindMostRecentByID(item.ID)
	if err != nil {
		// Unreachable given the engine's invariants: every queued item has
		// a matching ledger entry. Log loudly and reject rather than crash.
		log.Printf("review: internal-consistency fault resolving %s: %v", item.ID, err)
		return nil, fmt.Errorf("review: no audit entry for pending item %s: %w", item.ID, err)
	}

	entry.Resolve(action, edited)
	q.session.AppendAssistant(edited)
	q.pending = nil

	return &Resolution{
		EntryID:       item.ID,
		Action:        action,
		FinalResponse: edited,
	}, nil
}
