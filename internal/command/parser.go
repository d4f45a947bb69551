// Package command parses controller trade commands and detects asset
// address confirmations.
//
// Grammar:
//
//	buy|long <amount> SOL <SYMBOL>
//	sell|short|dump <amount> SOL <SYMBOL>
//	buy|sell <SYMBOL>
//
// The bare form carries no amount and cannot be confirmed; it only
// opens a trade record and asks for an address.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"agent-colony/internal/domain"
)

// Command is a parsed trade command.
type Command struct {
	Action    domain.TradeAction
	AmountSOL float64 // 0 when the bare form was used
	Symbol    string  // upper-cased
	HasAmount bool    // both amount and symbol were parsed
}

var (
	fullCmdRe = regexp.MustCompile(`(?i)\b(buy|long|sell|short|dump)\s+([0-9]*\.?[0-9]+)\s+SOL\s+\$?([A-Za-z][A-Za-z0-9]{1,14})\b`)
	bareCmdRe = regexp.MustCompile(`(?i)\b(buy|sell)\s+\$?([A-Za-z][A-Za-z0-9]{1,14})\b`)

	// Base-58 alphabet: no 0, O, I, l.
	addressTokenRe = regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`)
)

// Parse attempts to interpret text as a trade command. Returns nil when
// the text does not match the grammar.
func Parse(text string) *Command {
	if m := fullCmdRe.FindStringSubmatch(text); m != nil {
		amount, err := strconv.ParseFloat(m[2], 64)
		if err != nil || amount <= 0 {
			return nil
		}
		return &Command{
			Action:    actionOf(m[1]),
			AmountSOL: amount,
			Symbol:    strings.ToUpper(m[3]),
			HasAmount: true,
		}
	}

	if m := bareCmdRe.FindStringSubmatch(text); m != nil {
		// "buy 0.5" with a mangled tail would land here; reject symbols
		// that are pure numbers via the regexp's leading-letter rule.
		return &Command{
			Action: actionOf(m[1]),
			Symbol: strings.ToUpper(m[2]),
		}
	}

	return nil
}

func actionOf(verb string) domain.TradeAction {
	switch strings.ToLower(verb) {
	case "buy", "long":
		return domain.TradeBuy
	default:
		return domain.TradeSell
	}
}

// ExtractAddress finds the first plausible asset address token in text:
// base-58 shaped, 32–44 characters, not all digits. The token must
// decode as base-58; exact key length is left to the swap collaborator,
// which resolves the mint on chain. Returns "" when no token qualifies.
func ExtractAddress(text string) string {
	for _, tok := range addressTokenRe.FindAllString(text, -1) {
		if allDigits(tok) {
			continue
		}
		if _, err := base58.Decode(tok); err != nil {
			continue
		}
		return tok
	}
	return ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
