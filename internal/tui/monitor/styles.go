// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     monitor
// Description: Styles for the session monitor TUI
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/dolmetscher/internal/session"
)

var (
	ColorPrimary   = lipgloss.Color("#8B5CF6") // Violet
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Emerald
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorDimmed    = lipgloss.Color("#374151") // Dark Gray

	ColorBgPanel   = lipgloss.Color("#1E293B") // Slate 800
	ColorText      = lipgloss.Color("#F8FAFC") // Slate 50
	ColorTextMuted = lipgloss.Color("#94A3B8") // Slate 400
	ColorTextDim   = lipgloss.Color("#64748B") // Slate 500
)

var (
	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TitlePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 2)

	ConversationPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorDimmed).
				Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Background(ColorBgPanel).
			Foreground(ColorText).
			Padding(0, 1)
)

var (
	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	OriginalStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)

	TranslatedStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	LanguageStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	ModeStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)
)

var (
	StateIdleStyle       = lipgloss.NewStyle().Foreground(ColorTextMuted).Bold(true)
	StateRecordingStyle  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StateProcessingStyle = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StateErrorStyle      = lipgloss.NewStyle().Foreground(ColorError).Background(lipgloss.Color("#450A0A")).Bold(true)

	MeterFillStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	MeterLoudStyle  = lipgloss.NewStyle().Foreground(ColorWarning)
	MeterEmptyStyle = lipgloss.NewStyle().Foreground(ColorDimmed)
)

var (
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			MarginTop(1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)
)

// Logo
const Logo = "meinDOLMETSCHER"

// RenderKeyHint renders a keyboard shortcut hint
func RenderKeyHint(key, description string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(description)
}

// RenderState renders the state badge
func RenderState(s session.State) string {
	text := s.Icon() + " " + s.String()
	switch s.Kind {
	case session.StateRecording:
		return StateRecordingStyle.Render(text)
	case session.StateProcessing:
		return StateProcessingStyle.Render(text)
	case session.StateError:
		return StateErrorStyle.Render(text)
	default:
		return StateIdleStyle.Render(text)
	}
}
