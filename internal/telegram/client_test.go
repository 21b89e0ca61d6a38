package telegram

import (
	"strings"
	"testing"
	"time"

	"chainpulse/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Hello_World", "Hello\\_World"},
		{"Test*bold*", "Test\\*bold\\*"},
		{"PCR: 1.50", "PCR: 1\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"~strikethrough~", "\\~strikethrough\\~"},
		{"`code`", "\\`code\\`"},
		{">blockquote", "\\>blockquote"},
		{"#header", "\\#header"},
		{"+plus-minus", "\\+plus\\-minus"},
		{"=equal|pipe", "\\=equal\\|pipe"},
		{"{brace}", "\\{brace\\}"},
		{"end!", "end\\!"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	// NewClient with non-numeric chatID should return an error
	// Note: This test exercises the chat ID parsing error path
	// The bot token validation happens first (network call), so we use a clearly
	// invalid format to test the error handling flow
	_, err := NewClient("", "not-a-number", 3, time.Second)
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}

func TestFormatSummary(t *testing.T) {
	view := &models.CycleView{
		Symbol:           "NIFTY",
		IsIndex:          true,
		Underlying:       24500.5,
		HasUnderlying:    true,
		PCROpenInterest:  models.PCRValue{Value: 1.5, Basis: "OI", Available: true},
		PCRVolume:        models.PCRValue{Basis: "Volume", Available: false},
		PCRRecorded:      models.PCRValue{Value: 1.42, Basis: "OI", Available: true},
		MaxPain:          models.MaxPainResult{Strike: 24400, TotalPain: 123456},
		MaxPainAvailable: true,
	}

	msg := formatSummary(view)
	if !strings.Contains(msg, "NIFTY") {
		t.Error("summary missing symbol")
	}
	if !strings.Contains(msg, "1\\.50") {
		t.Errorf("summary missing escaped OI PCR: %q", msg)
	}
	if !strings.Contains(msg, "N/A") {
		t.Error("unavailable PCR should render as N/A")
	}
	if !strings.Contains(msg, "24400") {
		t.Error("summary missing max pain strike")
	}
}

func TestFormatSummary_UnavailableMaxPain(t *testing.T) {
	view := &models.CycleView{Symbol: "NIFTY"}
	msg := formatSummary(view)
	if !strings.Contains(msg, "Max pain: N/A") {
		t.Errorf("expected unavailable max pain line: %q", msg)
	}
}
