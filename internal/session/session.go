// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the conversation transcript for a single support
// session: an ordered, append-only sequence of customer and assistant
// turns. Turns are never removed or reordered once appended.
//
// State is ephemeral by design - one session, one process, no persistence.
// Supporting multiple concurrent sessions means constructing independent
// Session, review.Queue, and audit.Ledger instances per session.
package session

import (
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Greeting is the assistant turn every new session opens with.
const Greeting = "Hello. How can I help you today?"

// =============================================================================
// TURN
// =============================================================================

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser is a customer turn.
	RoleUser Role = "user"
	// RoleAssistant is a turn shown on the assistant side. Interception and
	// escalation copy inserted by the routing engine counts as assistant.
	RoleAssistant Role = "assistant"
)

// Turn is a single transcript entry.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the ordered transcript of one conversation. The review
// queue's at-most-one-pending invariant keeps turn processing sequential,
// but frontends render the transcript while a turn is in flight, so the
// mutex guards those read paths against the engine's appends.
type Session struct {
	mu    sync.Mutex
	turns []Turn
}

// New creates a session opening with the standard greeting.
func New() *Session {
	s := &Session{}
	s.AppendAssistant(Greeting)
	return s
}

// NewEmpty creates a session with no opening greeting. Used by tests that
// assert exact transcript contents.
func NewEmpty() *Session {
	return &Session{}
}

// AppendUser appends a customer turn. Input is NFC-normalized so that
// visually identical text compares equal downstream.
func (s *Session) AppendUser(content string) {
	s.append(RoleUser, norm.NFC.String(content))
}

// AppendAssistant appends an assistant turn.
func (s *Session) AppendAssistant(content string) {
	s.append(RoleAssistant, content)
}

func (s *Session) append(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, Turn{
		Role:    role,
		Content: content,
		At:      time.Now(),
	})
}

// Turns returns a copy of the transcript for rendering. Mutating the
// returned slice does not affect the session.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Last returns a copy of the most recent turn, or nil if the transcript
// is empty.
func (s *Session) Last() *Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.turns) == 0 {
		return nil
	}
	t := s.turns[len(s.turns)-1]
	return &t
}
