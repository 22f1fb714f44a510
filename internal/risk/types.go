// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package risk defines the structured risk judgment produced by the
// evaluation capability and the strict boundary parsing for it.
//
// The evaluator is an external model: its output is untrusted until it has
// been validated against the enumerated value sets below. Out-of-range
// values are rejected, never coerced - a guessed value must not be allowed
// to route a compliance-relevant flow.
package risk

import "fmt"

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classification is the evaluator's risk level for a draft reply.
type Classification string

const (
	// Low risk: procedural or educational content, safe to auto-send.
	Low Classification = "LOW"
	// Medium risk: borderline content eligible for one autonomous rewrite.
	Medium Classification = "MEDIUM"
	// High risk: content that must never reach the customer unreviewed.
	High Classification = "HIGH"
)

// Valid reports whether the classification is one of the allowed values.
func (c Classification) Valid() bool {
	switch c {
	case Low, Medium, High:
		return true
	}
	return false
}

// =============================================================================
// FLAGGED VECTOR
// =============================================================================

// Vector is the category of compliance concern the evaluator flagged.
type Vector string

const (
	// VectorNone means no risk category triggered.
	VectorNone Vector = "None"
	// VectorRegulatory flags outcome guidance or financial-advice territory.
	VectorRegulatory Vector = "Regulatory Boundary"
	// VectorDemographic flags unwarranted assumptions about the customer.
	VectorDemographic Vector = "Demographic Assumption"
	// VectorUrgency flags urgency pressure, potential harm, or fraud.
	VectorUrgency Vector = "Urgency/Harm"
)

// Valid reports whether the vector is one of the allowed values.
func (v Vector) Valid() bool {
	switch v {
	case VectorNone, VectorRegulatory, VectorDemographic, VectorUrgency:
		return true
	}
	return false
}

// Display returns the operator-facing description of the vector.
func (v Vector) Display() string {
	switch v {
	case VectorRegulatory:
		return "Regulatory Risk – Potential Outcome Guidance"
	case VectorDemographic:
		return "Demographic Risk – Unwarranted Assumption"
	case VectorUrgency:
		return "Urgency – Potential Harm or Fraud"
	case VectorNone:
		return "None"
	default:
		return string(v)
	}
}

// =============================================================================
// ROUTING DECISION
// =============================================================================

// Decision is the terminal disposition the evaluator recommends for a turn.
type Decision string

const (
	// AutoSend shows the draft to the customer with no human involved.
	AutoSend Decision = "auto_send"
	// HumanReview intercepts the draft into the review queue.
	HumanReview Decision = "human_review"
	// EscalateBlock blocks the draft and escalates; the turn is terminal.
	EscalateBlock Decision = "escalate_block"
)

// Valid reports whether the decision is one of the allowed values.
func (d Decision) Valid() bool {
	switch d {
	case AutoSend, HumanReview, EscalateBlock:
		return true
	}
	return false
}

// String returns a human-readable label for status banners.
func (d Decision) String() string {
	switch d {
	case AutoSend:
		return "Auto-Sent"
	case HumanReview:
		return "Intercepted"
	case EscalateBlock:
		return "Blocked & Escalated"
	default:
		return fmt.Sprintf("Decision(%s)", string(d))
	}
}
