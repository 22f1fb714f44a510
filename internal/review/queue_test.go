// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package review

import (
	"errors"
	"sync"
	"testing"

	"github.com/jeranaias/riskgate/internal/audit"
	"github.com/jeranaias/riskgate/internal/risk"
	"github.com/jeranaias/riskgate/internal/session"
)

func mediumEval() *risk.Evaluation {
	return &risk.Evaluation{
		Classification:  risk.Medium,
		FlaggedVector:   risk.VectorRegulatory,
		HighlightedText: "Buy index funds now.",
		Explanation:     "The draft gives outcome guidance.",
		Decision:        risk.HumanReview,
	}
}

// newPendingQueue builds a queue with one submitted item backed by a
// matching ledger entry, mirroring what the routing engine produces.
func newPendingQueue(t *testing.T, draft string) (*Queue, *audit.Ledger, *session.Session, *audit.Entry) {
	t.Helper()

	ledger := audit.NewLedger()
	sess := session.NewEmpty()
	queue := NewQueue(ledger, sess)

	eval := mediumEval()
	entry, err := audit.NewEntry(draft, eval)
	if err != nil {
		t.Fatalf("NewEntry failed: %v", err)
	}
	if err := ledger.Append(entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := queue.Submit(&Item{ID: entry.ID, Draft: draft, Eval: eval}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return queue, ledger, sess, entry
}

// =============================================================================
// SUBMIT TESTS
// =============================================================================

func TestSubmitAtMostOne(t *testing.T) {
	queue, _, _, _ := newPendingQueue(t, "draft")

	err := queue.Submit(&Item{ID: "aabbccdd", Draft: "second"})
	if !errors.Is(err, ErrAlreadyPending) {
		t.Errorf("error = %v, want ErrAlreadyPending", err)
	}
}

func TestHasPending(t *testing.T) {
	queue := NewQueue(audit.NewLedger(), session.NewEmpty())
	if queue.HasPending() {
		t.Error("fresh queue should have nothing pending")
	}

	queue, _, _, _ = newPendingQueue(t, "draft")
	if !queue.HasPending() {
		t.Error("queue should report a pending item")
	}
}

// =============================================================================
// RESOLVE TESTS
// =============================================================================

func TestResolveApprovedAsIs(t *testing.T) {
	const draft = "Buy index funds now."
	queue, _, sess, entry := newPendingQueue(t, draft)

	res, err := queue.Resolve("Buy index funds now.")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Action != audit.HumanApprovedAsIs {
		t.Errorf("Action = %q, want human_approved_as_is", res.Action)
	}
	if entry.Decision != audit.HumanApprovedAsIs {
		t.Errorf("entry.Decision = %q", entry.Decision)
	}
	if entry.FinalResponse == nil || *entry.FinalResponse != draft {
		t.Errorf("entry.FinalResponse = %v", entry.FinalResponse)
	}

	last := sess.Last()
	if last == nil || last.Role != session.RoleAssistant || last.Content != draft {
		t.Errorf("transcript not updated: %+v", last)
	}
	if queue.HasPending() {
		t.Error("pending item not cleared")
	}
}

func TestResolveEditedAndApproved(t *testing.T) {
	queue, _, _, entry := newPendingQueue(t, "Buy index funds now.")

	edited := "Consider researching index funds; this is not financial advice."
	res, err := queue.Resolve(edited)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Action != audit.HumanEditedAndApproved {
		t.Errorf("Action = %q, want human_edited_and_approved", res.Action)
	}
	if entry.HumanAction == nil || *entry.HumanAction != audit.HumanEditedAndApproved {
		t.Errorf("entry.HumanAction = %v", entry.HumanAction)
	}
	if entry.FinalResponse == nil || *entry.FinalResponse != edited {
		t.Errorf("entry.FinalResponse = %v", entry.FinalResponse)
	}
}

func TestResolveTrimsBeforeComparing(t *testing.T) {
	queue, _, _, _ := newPendingQueue(t, "Buy index funds now.")

	// Whitespace-only edits count as approval as-is.
	res, err := queue.Resolve("  Buy index funds now.\n")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Action != audit.HumanApprovedAsIs {
		t.Errorf("Action = %q, want human_approved_as_is", res.Action)
	}
}

func TestResolveTwiceFails(t *testing.T) {
	queue, _, _, _ := newPendingQueue(t, "draft")

	if _, err := queue.Resolve("draft"); err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if _, err := queue.Resolve("draft"); !errors.Is(err, ErrNothingPending) {
		t.Errorf("second Resolve error = %v, want ErrNothingPending", err)
	}
}

func TestResolveNothingPending(t *testing.T) {
	queue := NewQueue(audit.NewLedger(), session.NewEmpty())
	if _, err := queue.Resolve("text"); !errors.Is(err, ErrNothingPending) {
		t.Errorf("error = %v, want ErrNothingPending", err)
	}
}

func TestResolveMissingLedgerEntry(t *testing.T) {
	// Internal-consistency fault: pending item with no matching entry.
	queue := NewQueue(audit.NewLedger(), session.NewEmpty())
	if err := queue.Submit(&Item{ID: "deadbeef", Draft: "draft"}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	_, err := queue.Resolve("draft")
	if !errors.Is(err, audit.ErrNotFound) {
		t.Errorf("error = %v, want wrapped audit.ErrNotFound", err)
	}
	// The rejected operation must not clear the pending item silently.
	if !queue.HasPending() {
		t.Error("pending item should survive a failed resolve")
	}
}

func TestConcurrentSubmitAndPendingChecks(t *testing.T) {
	// Frontends poll HasPending and Pending while the engine submits from
	// a worker goroutine. Run with -race to exercise the locking.
	queue := NewQueue(audit.NewLedger(), session.NewEmpty())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Submit(&Item{ID: "cafe0001", Draft: "draft", Eval: mediumEval()})
	}()
	for i := 0; i < 200; i++ {
		queue.HasPending()
		queue.Pending()
	}
	wg.Wait()

	if !queue.HasPending() {
		t.Error("item should be pending after the submit completes")
	}
}
