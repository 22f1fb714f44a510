// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gate implements the risk-routing decision pipeline: draft a
// reply, score it, optionally attempt one autonomous rewrite, and route
// the outcome. The three language capabilities are interfaces here; the
// engine owns only the orchestration contract around them.
package gate

import (
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/riskgate/internal/config"
	"github.com/jeranaias/riskgate/internal/llm"
	"github.com/jeranaias/riskgate/internal/risk"
)

// =============================================================================
// CAPABILITY INTERFACES
// =============================================================================

// Drafter produces a candidate reply for a customer query.
type Drafter interface {
	Draft(ctx context.Context, query string) (string, error)
}

// Evaluator scores a draft reply and returns a structured risk judgment.
// A malformed or out-of-schema response is an error, never a judgment.
type Evaluator interface {
	Evaluate(ctx context.Context, draft string) (*risk.Evaluation, error)
}

// Rewriter revises a draft to remove a flagged risk.
type Rewriter interface {
	Rewrite(ctx context.Context, draft, flaggedReason string) (string, error)
}

// =============================================================================
// SYSTEM PROMPTS
// =============================================================================

const draftSystemPrompt = "You are a helpful customer support bot for a financial app. " +
	"Answer the user's question directly."

const rewriteSystemPrompt = "You are a compliance editor. Your job is to rewrite the " +
	"provided customer support draft to remove any financial advice, outcome guidance, " +
	"or unwarranted assumptions. Make it strictly educational and procedural."

// defaultEvalSystemPrompt instructs the evaluator to emit the strict
// five-field schema. Overridable via service.eval_prompt_path.
const defaultEvalSystemPrompt = `You are a compliance risk gate for a financial services customer support desk.
You receive one drafted support reply and must return a single JSON object with exactly these fields:

- "risk_classification": "LOW", "MEDIUM", or "HIGH".
- "flagged_vector": "None", "Regulatory Boundary", "Demographic Assumption", or "Urgency/Harm".
- "highlighted_text": the specific sentence causing the flag, or "None".
- "explanation": a concise, 1-sentence business rationale.
- "routing_decision": "auto_send", "human_review", or "escalate_block".

Classify LOW for procedural or educational content (routing_decision "auto_send").
Classify MEDIUM for borderline outcome guidance or unwarranted assumptions (routing_decision "human_review").
Classify HIGH for financial advice, guarantees, urgency pressure, or potential harm (routing_decision "escalate_block").
Return only the JSON object, no other text.`

// =============================================================================
// LLM-BACKED CAPABILITIES
// =============================================================================

// Capabilities bundles the three llm-backed capabilities built from one
// client and the service configuration.
type Capabilities struct {
	Drafter   Drafter
	Evaluator Evaluator
	Rewriter  Rewriter
}

// NewCapabilities wires the capabilities against the configured endpoint.
func NewCapabilities(cfg *config.Config, client *llm.Client) (*Capabilities, error) {
	evalPrompt := defaultEvalSystemPrompt
	if path := cfg.Service.EvalPromptPath; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read eval prompt: %w", err)
		}
		evalPrompt = string(data)
	}

	return &Capabilities{
		Drafter:   &llmDrafter{client: client, model: cfg.Service.DraftModel},
		Evaluator: &llmEvaluator{client: client, model: cfg.Service.EvalModel, prompt: evalPrompt},
		Rewriter:  &llmRewriter{client: client, model: cfg.Service.RewriteModel},
	}, nil
}

type llmDrafter struct {
	client *llm.Client
	model  string
}

func (d *llmDrafter) Draft(ctx context.Context, query string) (string, error) {
	reply, err := d.client.Complete(ctx, d.model, draftSystemPrompt, query, false)
	if err != nil {
		return "", fmt.Errorf("drafting failed: %w", err)
	}
	return reply, nil
}

type llmEvaluator struct {
	client *llm.Client
	model  string
	prompt string
}

func (e *llmEvaluator) Evaluate(ctx context.Context, draft string) (*risk.Evaluation, error) {
	content, err := e.client.Complete(ctx, e.model, e.prompt,
		"Evaluate this drafted response:\n\n"+draft, true)
	if err != nil {
		return nil, fmt.Errorf("risk evaluation failed: %w", err)
	}

	eval, err := risk.Parse([]byte(content))
	if err != nil {
		// Schema violations are capability failures: reject, never coerce.
		return nil, fmt.Errorf("risk evaluation failed: %w", err)
	}
	return eval, nil
}

type llmRewriter struct {
	client *llm.Client
	model  string
}

func (r *llmRewriter) Rewrite(ctx context.Context, draft, flaggedReason string) (string, error) {
	user := fmt.Sprintf("DRAFT:\n%s\n\nREASON FLAGGED:\n%s\n\nREWRITE:", draft, flaggedReason)
	revised, err := r.client.Complete(ctx, r.model, rewriteSystemPrompt, user, false)
	if err != nil {
		return "", fmt.Errorf("rewrite failed: %w", err)
	}
	return revised, nil
}
