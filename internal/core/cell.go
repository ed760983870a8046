package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AutoGeneratedMarker tags payments-due text written by the allocator so a
// recompute can replace it without clobbering text the user typed.
const AutoGeneratedMarker = "Auto-generated"

const (
	estimatePrefix = "Estimate:"
	paidMark       = "✓"
)

// FormatCellText renders a category cell in the saved free-text format:
//
//	Estimate: £X.XX
//	= <expression>
func FormatCellText(estimate decimal.Decimal, expression string) string {
	return estimatePrefix + " " + FormatPounds(estimate) + "\n= " + strings.TrimSpace(expression)
}

// ParseCellText splits free-text cell content into its estimate line and the
// expression after "=". Either part may be missing. Text with neither an
// estimate line nor "=" is taken as a bare expression when it parses as one.
func ParseCellText(text string) (estimate decimal.Decimal, expression string) {
	estimate = decimal.Zero
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var exprLines []string
	inExpr := false
	sawEstimate := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case inExpr:
			if trimmed != "" {
				exprLines = append(exprLines, trimmed)
			}
		case strings.HasPrefix(trimmed, estimatePrefix):
			sawEstimate = true
			if d, err := ParseAmount(strings.TrimPrefix(trimmed, estimatePrefix)); err == nil {
				estimate = d
			}
		case strings.HasPrefix(trimmed, "="):
			inExpr = true
			if rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "=")); rest != "" {
				exprLines = append(exprLines, rest)
			}
		}
	}
	if inExpr {
		return estimate, strings.Join(exprLines, " ")
	}
	if !sawEstimate {
		if bare := strings.TrimSpace(text); bare != "" {
			if _, err := ParseExpression(bare); err == nil {
				return estimate, bare
			}
		}
	}
	return estimate, ""
}

// PaymentLine is one entry of a week's payments-due block.
type PaymentLine struct {
	Category string
	Amount   decimal.Decimal
	Card     string
	Paid     bool
}

// FormatPaymentLine renders "<Category>: £<amount> (<Card>) ✓". The card
// is omitted when empty and the tick appears only for paid entries.
func FormatPaymentLine(l PaymentLine) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(l.Category))
	b.WriteString(": ")
	b.WriteString(FormatPounds(l.Amount))
	if card := strings.TrimSpace(l.Card); card != "" {
		b.WriteString(" (")
		b.WriteString(card)
		b.WriteString(")")
	}
	if l.Paid {
		b.WriteString(" ")
		b.WriteString(paidMark)
	}
	return b.String()
}

// FormatPaymentsDue renders the auto-generated block for a week. A week with
// nothing due renders as empty text.
func FormatPaymentsDue(lines []PaymentLine) string {
	if len(lines) == 0 {
		return ""
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, AutoGeneratedMarker)
	for _, l := range lines {
		out = append(out, FormatPaymentLine(l))
	}
	return strings.Join(out, "\n")
}

// IsAutoGenerated reports whether payments-due text may be overwritten.
func IsAutoGenerated(text string) bool {
	return strings.TrimSpace(text) == "" || strings.Contains(text, AutoGeneratedMarker)
}
