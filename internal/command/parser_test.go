package command

import (
	"strings"
	"testing"

	"agent-colony/internal/domain"
)

func TestParse_FullForm(t *testing.T) {
	cases := []struct {
		text   string
		action domain.TradeAction
		amount float64
		symbol string
	}{
		{"buy 0.5 SOL FOO", domain.TradeBuy, 0.5, "FOO"},
		{"long 2 sol wif", domain.TradeBuy, 2, "WIF"},
		{"sell 1.25 SOL $BONK", domain.TradeSell, 1.25, "BONK"},
		{"short 0.1 SOL pepe", domain.TradeSell, 0.1, "PEPE"},
		{"dump 3 SOL DOGE", domain.TradeSell, 3, "DOGE"},
		{"hey @agent buy 0.5 SOL FOO please", domain.TradeBuy, 0.5, "FOO"},
	}
	for _, c := range cases {
		cmd := Parse(c.text)
		if cmd == nil {
			t.Fatalf("Parse(%q) returned nil", c.text)
		}
		if cmd.Action != c.action || cmd.AmountSOL != c.amount || cmd.Symbol != c.symbol {
			t.Errorf("Parse(%q) = %+v", c.text, cmd)
		}
		if !cmd.HasAmount {
			t.Errorf("Parse(%q): expected HasAmount", c.text)
		}
	}
}

func TestParse_BareForm(t *testing.T) {
	cmd := Parse("buy WIF")
	if cmd == nil {
		t.Fatal("Parse returned nil")
	}
	if cmd.Action != domain.TradeBuy || cmd.Symbol != "WIF" {
		t.Errorf("Unexpected command: %+v", cmd)
	}
	if cmd.HasAmount {
		t.Error("Bare form must not set HasAmount")
	}

	cmd = Parse("sell $bonk")
	if cmd == nil || cmd.Action != domain.TradeSell || cmd.Symbol != "BONK" {
		t.Errorf("Unexpected command: %+v", cmd)
	}
}

func TestParse_NonCommands(t *testing.T) {
	for _, text := range []string{
		"what do you think about solana?",
		"I would never buy",
		"buy 0 SOL FOO", // zero amount rejected
		"sold everything today",
		"",
	} {
		if cmd := Parse(text); cmd != nil {
			t.Errorf("Parse(%q) = %+v, want nil", text, cmd)
		}
	}
}

func TestExtractAddress(t *testing.T) {
	mint := "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

	cases := []struct {
		text string
		want string
	}{
		{mint, mint},
		{"here it is: " + mint + " thanks", mint},
		{"So11111111111111111111111111111111111111112", "So11111111111111111111111111111111111111112"},
		{strings.Repeat("7", 40), ""},        // all digits
		{"0x1234567890abcdef1234567890abcdef12345678", ""}, // hex, contains 0
		{"short", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ExtractAddress(c.text); got != c.want {
			t.Errorf("ExtractAddress(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}
