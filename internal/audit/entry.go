// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit provides the append-only ledger recording every routed
// customer turn with full provenance: the evaluated draft, the final
// evaluation, the routing decision, and any later human action.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/riskgate/internal/risk"
)

// Human action values recorded when a reviewer resolves an intercepted
// draft. The entry's Decision field is overwritten with the same value,
// matching the reference control plane's provenance display.
const (
	HumanApprovedAsIs      = "human_approved_as_is"
	HumanEditedAndApproved = "human_edited_and_approved"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one audit record. Exactly one exists per routed customer turn.
// Entries are immutable after creation except for human-review resolution,
// which sets Decision, HumanAction, and FinalResponse on the matching
// entry. JSON field names mirror the exported audit document.
type Entry struct {
	Time            time.Time           `json:"Time"`
	ID              string              `json:"ID"`
	Risk            risk.Classification `json:"Risk"`
	Decision        string              `json:"Decision"`
	FlaggedVector   risk.Vector         `json:"FlaggedVector"`
	Explanation     string              `json:"Explanation"`
	HighlightedText string              `json:"HighlightedText"`
	AIDraft         string              `json:"AIDraft"`
	FinalResponse   *string             `json:"FinalResponse"`
	HumanAction     *string             `json:"HumanAction"`
	FullEval        string              `json:"FullEval"`
}

// NewEntry builds the audit record for a routed turn. draft is the text
// that was evaluated (post-rewrite when a rewrite occurred). FinalResponse
// is set immediately only for auto_send; human_review entries gain it on
// resolution and escalate_block entries never do.
func NewEntry(draft string, eval *risk.Evaluation) (*Entry, error) {
	fullEval, err := eval.ToJSON()
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		Time:            time.Now(),
		ID:              NewID(),
		Risk:            eval.Classification,
		Decision:        string(eval.Decision),
		FlaggedVector:   eval.FlaggedVector,
		Explanation:     eval.Explanation,
		HighlightedText: eval.HighlightedText,
		AIDraft:         draft,
		FullEval:        fullEval,
	}

	if eval.Decision == risk.AutoSend {
		final := draft
		entry.FinalResponse = &final
	}

	return entry, nil
}

// Resolve records a human review outcome on the entry. Only entries routed
// human_review are ever resolved; the ledger enforces that via the review
// queue's id matching.
func (e *Entry) Resolve(action, finalResponse string) {
	e.Decision = action
	e.HumanAction = &action
	e.FinalResponse = &finalResponse
}

// NewID returns a short collision-resistant identifier: the first 8 hex
// characters of a v4 UUID. 32 random bits keep collisions overwhelmingly
// unlikely at session scale.
func NewID() string {
	return uuid.NewString()[:8]
}
