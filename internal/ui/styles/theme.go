// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the riskgate TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/riskgate/internal/risk"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// PANE AND HEADER STYLES
	// ==========================================================================

	App        lipgloss.Style
	Pane       lipgloss.Style
	PaneTitle  lipgloss.Style
	PaneActive lipgloss.Style

	// ==========================================================================
	// CHAT PANE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	InputContainer  lipgloss.Style
	InputPrompt     lipgloss.Style
	InputDisabled   lipgloss.Style

	// ==========================================================================
	// CONTROL PLANE STYLES
	// ==========================================================================

	BannerLow    lipgloss.Style
	BannerMedium lipgloss.Style
	BannerHigh   lipgloss.Style

	DecisionAutoSend    lipgloss.Style
	DecisionHumanReview lipgloss.Style
	DecisionEscalate    lipgloss.Style

	EvalLabel lipgloss.Style
	EvalValue lipgloss.Style
	RawJSON   lipgloss.Style

	ReviewBox   lipgloss.Style
	ReviewTitle lipgloss.Style

	// ==========================================================================
	// AUDIT TABLE STYLES
	// ==========================================================================

	TableHeader lipgloss.Style
	TableRow    lipgloss.Style
	TableRowAlt lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	StatusError  lipgloss.Style

	// Spinner
	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	hasTrueColor := colorProfile == termenv.TrueColor
	isDark := termenv.HasDarkBackground()

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: hasTrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	t.Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PaneActive = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)

	t.PaneTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Padding(0, 1)

	// Chat bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 2).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		Background(AssistantBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 2).
		MarginRight(4)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputDisabled = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Risk banners, one per classification
	t.BannerLow = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Emerald).
		Bold(true).
		Padding(0, 2)

	t.BannerMedium = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Amber).
		Bold(true).
		Padding(0, 2)

	t.BannerHigh = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Rose).
		Bold(true).
		Padding(0, 2)

	// Decision badges
	t.DecisionAutoSend = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.DecisionHumanReview = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.DecisionEscalate = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	// Evaluation detail
	t.EvalLabel = lipgloss.NewStyle().
		Foreground(TextMuted).
		Width(14)

	t.EvalValue = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.RawJSON = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	// Review editor
	t.ReviewBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Amber).
		Padding(0, 1)

	t.ReviewTitle = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Audit table
	t.TableHeader = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)

	t.TableRow = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.TableRowAlt = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	// Spinner
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary)
}

// Banner returns the banner style for a risk classification.
func (t *Theme) Banner(c risk.Classification) lipgloss.Style {
	switch c {
	case risk.Medium:
		return t.BannerMedium
	case risk.High:
		return t.BannerHigh
	default:
		return t.BannerLow
	}
}

// DecisionBadge returns the badge style for a routing decision.
func (t *Theme) DecisionBadge(d risk.Decision) lipgloss.Style {
	switch d {
	case risk.HumanReview:
		return t.DecisionHumanReview
	case risk.EscalateBlock:
		return t.DecisionEscalate
	default:
		return t.DecisionAutoSend
	}
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 80 columns: chat only
	LayoutWide                     // >= 80 columns: chat + control plane
)

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 80 {
		return LayoutNarrow
	}
	return LayoutWide
}
