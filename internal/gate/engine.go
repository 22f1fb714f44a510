// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/riskgate/internal/audit"
	"github.com/jeranaias/riskgate/internal/review"
	"github.com/jeranaias/riskgate/internal/risk"
	"github.com/jeranaias/riskgate/internal/session"
)

// Customer-facing copy. The customer only ever sees these pre-scripted
// lines for intercepted turns - raw risk metadata stays on the operator
// side.
const (
	// InterceptionMessage is shown when a draft is routed to human review.
	InterceptionMessage = "Your request has been routed to a specialist to ensure accuracy. Please hold."

	// EscalationMessage is shown when a draft is blocked and escalated.
	EscalationMessage = "Your request requires specialized assistance and has been escalated to our advisory team."

	// FailureMessage is shown when a capability failure aborts the turn.
	FailureMessage = "Something went wrong while processing your request. Please try again."
)

// ErrReviewPending signals that customer input is blocked while a review
// is outstanding. It is a blocked-state indicator, not a fault: frontends
// disable input on it rather than reporting an error.
var ErrReviewPending = errors.New("gate: a specialist review is in progress")

// =============================================================================
// ENGINE
// =============================================================================

// Engine converts a customer query into exactly one audited routing
// outcome. It owns the self-correction loop and the terminal routing
// rules; session, ledger, and queue are per-session collaborators passed
// in at construction.
type Engine struct {
	capsMu  sync.RWMutex
	caps    *Capabilities
	session *session.Session
	ledger  *audit.Ledger
	queue   *review.Queue
}

// NewEngine builds an engine over one session's state.
func NewEngine(caps *Capabilities, sess *session.Session, ledger *audit.Ledger, queue *review.Queue) *Engine {
	return &Engine{
		caps:    caps,
		session: sess,
		ledger:  ledger,
		queue:   queue,
	}
}

// Session returns the conversation transcript.
func (e *Engine) Session() *session.Session { return e.session }

// Ledger returns the audit ledger.
func (e *Engine) Ledger() *audit.Ledger { return e.ledger }

// Queue returns the review queue.
func (e *Engine) Queue() *review.Queue { return e.queue }

// ReviewPending reports whether customer input is currently blocked.
func (e *Engine) ReviewPending() bool { return e.queue.HasPending() }

// SetCapabilities swaps the drafting/evaluation stack, typically after a
// config reload. In-flight turns keep the capabilities they started with.
func (e *Engine) SetCapabilities(caps *Capabilities) {
	e.capsMu.Lock()
	e.caps = caps
	e.capsMu.Unlock()
}

func (e *Engine) capabilities() *Capabilities {
	e.capsMu.RLock()
	defer e.capsMu.RUnlock()
	return e.caps
}

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome is the result of one routed turn, surfaced to the control plane.
type Outcome struct {
	// Draft is the evaluated draft (post-rewrite when a rewrite occurred).
	Draft string
	// Eval is the final evaluation.
	Eval *risk.Evaluation
	// Entry is the audit record created for the turn.
	Entry *audit.Entry
	// Decision is the terminal routing decision.
	Decision risk.Decision
}

// =============================================================================
// SUBMIT QUERY
// =============================================================================

// SubmitQuery processes one customer turn end to end:
//
//	draft -> evaluate -> (MEDIUM: rewrite -> re-evaluate, once) -> route
//
// The audit entry is appended before any customer-visible action so
// provenance survives a crash mid-turn. On capability failure the turn
// aborts: no audit entry, no fabricated decision; a generic failure turn
// keeps the transcript coherent and the error is returned to the caller.
func (e *Engine) SubmitQuery(ctx context.Context, query string) (*Outcome, error) {
	if e.queue.HasPending() {
		return nil, ErrReviewPending
	}

	e.session.AppendUser(query)

	draft, eval, err := e.draftAndEvaluate(ctx, query)
	if err != nil {
		e.session.AppendAssistant(FailureMessage)
		return nil, err
	}

	entry, err := audit.NewEntry(draft, eval)
	if err != nil {
		e.session.AppendAssistant(FailureMessage)
		return nil, fmt.Errorf("gate: audit entry creation failed: %w", err)
	}
	if err := e.ledger.Append(entry); err != nil {
		e.session.AppendAssistant(FailureMessage)
		return nil, fmt.Errorf("gate: audit append failed: %w", err)
	}

	switch eval.Decision {
	case risk.AutoSend:
		e.session.AppendAssistant(draft)

	case risk.HumanReview:
		e.session.AppendAssistant(InterceptionMessage)
		if err := e.queue.Submit(&review.Item{ID: entry.ID, Draft: draft, Eval: eval}); err != nil {
			// Unreachable: the pending guard at the top holds the
			// at-most-one invariant. Surface rather than swallow.
			return nil, fmt.Errorf("gate: review submit failed: %w", err)
		}

	case risk.EscalateBlock:
		// Terminal: the draft is never shown and the entry is never
		// mutated again.
		e.session.AppendAssistant(EscalationMessage)
	}

	return &Outcome{
		Draft:    draft,
		Eval:     eval,
		Entry:    entry,
		Decision: eval.Decision,
	}, nil
}

// draftAndEvaluate runs the drafting pass, the evaluation, and the
// single-attempt self-correction loop for MEDIUM classifications. The
// second evaluation is final regardless of its classification - no
// recursive retry.
func (e *Engine) draftAndEvaluate(ctx context.Context, query string) (string, *risk.Evaluation, error) {
	caps := e.capabilities()

	draft, err := caps.Drafter.Draft(ctx, query)
	if err != nil {
		return "", nil, fmt.Errorf("gate: %w", err)
	}

	eval, err := caps.Evaluator.Evaluate(ctx, draft)
	if err != nil {
		return "", nil, fmt.Errorf("gate: %w", err)
	}

	if eval.Classification == risk.Medium {
		rewritten, err := caps.Rewriter.Rewrite(ctx, draft, eval.Explanation)
		if err != nil {
			return "", nil, fmt.Errorf("gate: %w", err)
		}
		draft = rewritten

		eval, err = caps.Evaluator.Evaluate(ctx, draft)
		if err != nil {
			return "", nil, fmt.Errorf("gate: %w", err)
		}
		eval.MarkRewritten()
	}

	return draft, eval, nil
}

// =============================================================================
// RESOLVE REVIEW
// =============================================================================

// ResolveReview completes the pending human review with the reviewer's
// text. See review.Queue.Resolve for the action classification rules.
func (e *Engine) ResolveReview(edited string) (*review.Resolution, error) {
	return e.queue.Resolve(edited)
}
