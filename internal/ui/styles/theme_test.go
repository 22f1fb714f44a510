// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/jeranaias/riskgate/internal/risk"
)

func TestNewThemeInitializesStyles(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}
	// Spot-check a few styles render without panicking.
	for _, s := range []string{
		theme.UserBubble.Render("hi"),
		theme.AssistantBubble.Render("hello"),
		theme.BannerHigh.Render("HIGH"),
		theme.StatusBar.Render("ready"),
	} {
		if s == "" {
			t.Error("style rendered empty output")
		}
	}
}

func TestBannerSelection(t *testing.T) {
	theme := NewTheme()
	tests := []struct {
		c    risk.Classification
		want string
	}{
		{risk.Low, theme.BannerLow.Render("x")},
		{risk.Medium, theme.BannerMedium.Render("x")},
		{risk.High, theme.BannerHigh.Render("x")},
	}
	for _, tt := range tests {
		if got := theme.Banner(tt.c).Render("x"); got != tt.want {
			t.Errorf("Banner(%s) rendered unexpected style", tt.c)
		}
	}
}

func TestDecisionBadgeSelection(t *testing.T) {
	theme := NewTheme()
	if theme.DecisionBadge(risk.AutoSend).Render("x") != theme.DecisionAutoSend.Render("x") {
		t.Error("auto_send should use the auto-send badge")
	}
	if theme.DecisionBadge(risk.EscalateBlock).Render("x") != theme.DecisionEscalate.Render("x") {
		t.Error("escalate_block should use the escalate badge")
	}
}

func TestLayoutMode(t *testing.T) {
	theme := NewTheme()

	theme.SetSize(60, 24)
	if theme.GetLayoutMode() != LayoutNarrow {
		t.Error("60 columns should be narrow")
	}

	theme.SetSize(120, 40)
	if theme.GetLayoutMode() != LayoutWide {
		t.Error("120 columns should be wide")
	}
}

func TestStatusIndicatorsAreASCII(t *testing.T) {
	for _, s := range []string{
		StatusIndicators.Success,
		StatusIndicators.Error,
		StatusIndicators.Warning,
		StatusIndicators.Info,
		StatusIndicators.Pending,
	} {
		for _, r := range s {
			if r > 127 {
				t.Errorf("indicator %q contains non-ASCII rune %q", s, r)
			}
		}
	}
}
