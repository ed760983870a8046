package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const maxExpressionDepth = 64

var (
	errInvalidCharacter = errors.New("invalid character in expression")
	errDivisionByZero   = errors.New("division by zero")
	errUnexpectedEnd    = errors.New("unexpected end of expression")
	errTooDeep          = errors.New("expression nested too deeply")
)

// EvaluateExpression evaluates the actual-spending expression of a weekly
// cell, e.g. "100+20+10-5". A leading "=" is ignored. Empty or rejected
// input evaluates to zero; the caller never sees an error.
func EvaluateExpression(expr string) decimal.Decimal {
	v, err := ParseExpression(expr)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// ParseExpression is EvaluateExpression with the failure reason kept.
// Only digits, "+ - * /", parentheses, decimal points and whitespace are
// accepted once currency symbols and thousands separators are stripped.
func ParseExpression(expr string) (decimal.Decimal, error) {
	s := strings.TrimSpace(expr)
	s = strings.TrimSpace(strings.TrimPrefix(s, "="))
	s = stripCurrency(s)
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	for _, r := range s {
		if !isExpressionRune(r) {
			return decimal.Zero, fmt.Errorf("%w: %q", errInvalidCharacter, r)
		}
	}

	p := &exprParser{src: s}
	v, err := p.parseSum(0)
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return decimal.Zero, fmt.Errorf("unexpected %q at position %d", p.src[p.pos], p.pos)
	}
	return v, nil
}

func isExpressionRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '+' || r == '-' || r == '*' || r == '/':
		return true
	case r == '(' || r == ')' || r == '.':
		return true
	case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		return true
	}
	return false
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// sum := product (("+" | "-") product)*
func (p *exprParser) parseSum(depth int) (decimal.Decimal, error) {
	left, err := p.parseProduct(depth)
	if err != nil {
		return decimal.Zero, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct(depth)
		if err != nil {
			return decimal.Zero, err
		}
		if op == '+' {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

// product := unary (("*" | "/") unary)*
func (p *exprParser) parseProduct(depth int) (decimal.Decimal, error) {
	left, err := p.parseUnary(depth)
	if err != nil {
		return decimal.Zero, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary(depth)
		if err != nil {
			return decimal.Zero, err
		}
		if op == '*' {
			left = left.Mul(right)
			continue
		}
		if right.IsZero() {
			return decimal.Zero, errDivisionByZero
		}
		left = left.Div(right)
	}
}

// unary := ("+" | "-") unary | primary
func (p *exprParser) parseUnary(depth int) (decimal.Decimal, error) {
	if depth > maxExpressionDepth {
		return decimal.Zero, errTooDeep
	}
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseUnary(depth + 1)
		return v.Neg(), err
	case '+':
		p.pos++
		return p.parseUnary(depth + 1)
	}
	return p.parsePrimary(depth)
}

// primary := number | "(" sum ")"
func (p *exprParser) parsePrimary(depth int) (decimal.Decimal, error) {
	c := p.peek()
	switch {
	case c == 0:
		return decimal.Zero, errUnexpectedEnd
	case c == '(':
		p.pos++
		v, err := p.parseSum(depth + 1)
		if err != nil {
			return decimal.Zero, err
		}
		if p.peek() != ')' {
			return decimal.Zero, errors.New("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case (c >= '0' && c <= '9') || c == '.':
		return p.parseNumber()
	}
	return decimal.Zero, fmt.Errorf("unexpected %q at position %d", c, p.pos)
}

func (p *exprParser) parseNumber() (decimal.Decimal, error) {
	start := p.pos
	dots := 0
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' {
			dots++
		} else if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	lit := p.src[start:p.pos]
	if dots > 1 || lit == "." {
		return decimal.Zero, fmt.Errorf("malformed number %q", lit)
	}
	if strings.HasPrefix(lit, ".") {
		lit = "0" + lit
	}
	if strings.HasSuffix(lit, ".") {
		lit += "0"
	}
	return decimal.NewFromString(lit)
}
