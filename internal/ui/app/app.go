// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app provides the two-pane operator TUI: the customer chat on the
// left and the supervisor control plane (risk banner, review editor, audit
// table) on the right.
package app

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/riskgate/internal/gate"
	"github.com/jeranaias/riskgate/internal/ui/styles"
)

// =============================================================================
// APP STATE
// =============================================================================

// focusArea identifies which pane receives keyboard input.
type focusArea int

const (
	focusChat   focusArea = iota // Customer input field
	focusReview                  // Supervisor review editor
)

// ReviewHoldNotice is shown in place of the input field while a draft is
// held for review.
const ReviewHoldNotice = "A support specialist is currently reviewing your request."

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the operator console.
type Model struct {
	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Engine owns the session, ledger and review queue.
	engine    *gate.Engine
	exportDir string

	// UI components
	chatView viewport.Model
	input    textinput.Model
	spin     spinner.Model
	review   textarea.Model

	// State
	focus       focusArea
	busy        bool
	showRawEval bool
	lastOutcome *gate.Outcome
	statusMsg   string
	errMsg      string
}

// New creates the operator console model around a routing engine.
func New(theme *styles.Theme, engine *gate.Engine, exportDir string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	// ASCII spinner frames for terminal compatibility.
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	ta := textarea.New()
	ta.Placeholder = "Edit the held draft..."
	ta.CharLimit = 8192
	ta.SetHeight(6)

	m := Model{
		theme:     theme,
		engine:    engine,
		exportDir: exportDir,
		chatView:  vp,
		input:     ti,
		spin:      sp,
		review:    ta,
		focus:     focusChat,
	}
	m.refreshChat()
	return m
}

// Init starts the input cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}
