// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package risk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RewrittenMarker prefixes the explanation of an evaluation whose draft was
// produced by the autonomous rewrite pass, preserving provenance that a
// correction occurred.
const RewrittenMarker = "[Rewritten]"

// ErrSchema indicates the evaluator returned a payload that does not
// conform to the five-field schema. Callers treat it as a capability
// failure, not a degraded success.
var ErrSchema = errors.New("evaluation violates schema")

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluation is a structured risk judgment for one draft reply. It is
// immutable once produced, with one exception: MarkRewritten prefixes the
// explanation after the self-correction pass.
type Evaluation struct {
	Classification  Classification `json:"risk_classification"`
	FlaggedVector   Vector         `json:"flagged_vector"`
	HighlightedText string         `json:"highlighted_text"`
	Explanation     string         `json:"explanation"`
	Decision        Decision       `json:"routing_decision"`
}

// Validate checks every enum-constrained field against its allowed value
// set. A zero-value (missing) field fails like any other out-of-range value.
func (e *Evaluation) Validate() error {
	if !e.Classification.Valid() {
		return fmt.Errorf("%w: risk_classification %q", ErrSchema, string(e.Classification))
	}
	if !e.FlaggedVector.Valid() {
		return fmt.Errorf("%w: flagged_vector %q", ErrSchema, string(e.FlaggedVector))
	}
	if !e.Decision.Valid() {
		return fmt.Errorf("%w: routing_decision %q", ErrSchema, string(e.Decision))
	}
	if e.HighlightedText == "" {
		return fmt.Errorf("%w: highlighted_text is empty (use the literal \"None\")", ErrSchema)
	}
	if strings.TrimSpace(e.Explanation) == "" {
		return fmt.Errorf("%w: explanation is empty", ErrSchema)
	}
	return nil
}

// MarkRewritten prefixes the explanation with the RewrittenMarker.
// Idempotence is not needed: the engine makes exactly one rewrite attempt.
func (e *Evaluation) MarkRewritten() {
	e.Explanation = RewrittenMarker + " " + e.Explanation
}

// Rewritten reports whether the evaluation carries the rewrite marker.
func (e *Evaluation) Rewritten() bool {
	return strings.HasPrefix(e.Explanation, RewrittenMarker)
}

// ToJSON serializes the evaluation for audit retention.
func (e *Evaluation) ToJSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// =============================================================================
// BOUNDARY PARSING
// =============================================================================

// Parse decodes and validates an evaluator payload. Models occasionally
// wrap JSON output in a markdown code fence; the fence is stripped before
// decoding. Any schema violation returns an error wrapping ErrSchema.
func Parse(data []byte) (*Evaluation, error) {
	trimmed := stripCodeFence(strings.TrimSpace(string(data)))

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var eval Evaluation
	if err := dec.Decode(&eval); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := eval.Validate(); err != nil {
		return nil, err
	}
	return &eval, nil
}

// stripCodeFence removes a surrounding ```json ... ``` fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
