package expr

import (
	"strconv"
	"strings"
	"unicode"
)

// EvalArithmetic evaluates a plain arithmetic expression (+, -, *, /, unary
// minus, parentheses) over numeric literals. Variables must already be
// substituted; the expression-assignment handler renders its template before
// calling this. The second result is false when the input is not a valid
// arithmetic expression.
func EvalArithmetic(input string) (float64, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, false
	}
	p := &arithParser{input: []rune(input)}
	value, ok := p.parseExpression()
	if !ok {
		return 0, false
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, false
	}
	return value, true
}

type arithParser struct {
	input []rune
	pos   int
}

func (p *arithParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *arithParser) peek() (rune, bool) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

// parseExpression handles: term (('+'|'-') term)*
func (p *arithParser) parseExpression() (float64, bool) {
	left, ok := p.parseTerm()
	if !ok {
		return 0, false
	}
	for {
		ch, present := p.peek()
		if !present || (ch != '+' && ch != '-') {
			return left, true
		}
		p.pos++
		right, ok := p.parseTerm()
		if !ok {
			return 0, false
		}
		if ch == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// parseTerm handles: factor (('*'|'/') factor)*
func (p *arithParser) parseTerm() (float64, bool) {
	left, ok := p.parseFactor()
	if !ok {
		return 0, false
	}
	for {
		ch, present := p.peek()
		if !present || (ch != '*' && ch != '/') {
			return left, true
		}
		p.pos++
		right, ok := p.parseFactor()
		if !ok {
			return 0, false
		}
		if ch == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, false
			}
			left /= right
		}
	}
}

// parseFactor handles: number, '-' factor, '(' expression ')'
func (p *arithParser) parseFactor() (float64, bool) {
	ch, present := p.peek()
	if !present {
		return 0, false
	}
	switch {
	case ch == '-':
		p.pos++
		value, ok := p.parseFactor()
		return -value, ok
	case ch == '(':
		p.pos++
		value, ok := p.parseExpression()
		if !ok {
			return 0, false
		}
		if closing, there := p.peek(); !there || closing != ')' {
			return 0, false
		}
		p.pos++
		return value, true
	default:
		return p.parseNumber()
	}
}

func (p *arithParser) parseNumber() (float64, bool) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	value, err := strconv.ParseFloat(string(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
