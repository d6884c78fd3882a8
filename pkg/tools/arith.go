package tools

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ErrDivisionByZero is returned when a divisor evaluates to zero.
var ErrDivisionByZero = errors.New("division by zero")

// Number is the result of an arithmetic expression. While every operand and
// operation stays in the integers the value is held exactly in Int; anything
// involving a decimal literal or a division is carried as a float64 in Float.
type Number struct {
	Int     *big.Int
	Float   float64
	Integer bool
}

func intNumber(v *big.Int) Number { return Number{Int: v, Integer: true} }
func floatNumber(v float64) Number { return Number{Float: v} }

// Float64 returns the value as a float64, rounding integers that do not fit.
func (n Number) Float64() float64 {
	if n.Integer {
		f, _ := new(big.Float).SetInt(n.Int).Float64()
		return f
	}
	return n.Float
}

func (n Number) isZero() bool {
	if n.Integer {
		return n.Int.Sign() == 0
	}
	return n.Float == 0
}

// String formats n the way Python prints int and float values.
func (n Number) String() string {
	if n.Integer {
		return n.Int.String()
	}
	switch {
	case math.IsNaN(n.Float):
		return "nan"
	case math.IsInf(n.Float, 1):
		return "inf"
	case math.IsInf(n.Float, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(n.Float, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func arith(op byte, left, right Number) (Number, error) {
	if op == '/' {
		if right.isZero() {
			return Number{}, ErrDivisionByZero
		}
		return floatNumber(left.Float64() / right.Float64()), nil
	}
	if left.Integer && right.Integer {
		out := new(big.Int)
		switch op {
		case '+':
			out.Add(left.Int, right.Int)
		case '-':
			out.Sub(left.Int, right.Int)
		case '*':
			out.Mul(left.Int, right.Int)
		}
		return intNumber(out), nil
	}
	l, r := left.Float64(), right.Float64()
	switch op {
	case '+':
		return floatNumber(l + r), nil
	case '-':
		return floatNumber(l - r), nil
	default:
		return floatNumber(l * r), nil
	}
}

func negate(n Number) Number {
	if n.Integer {
		return intNumber(new(big.Int).Neg(n.Int))
	}
	return floatNumber(-n.Float)
}

// Evaluate parses and evaluates expr. Only numeric literals, + - * /,
// unary signs and parentheses are accepted.
//
//	expr   = term { ("+" | "-") term }
//	term   = unary { ("*" | "/") unary }
//	unary  = ("+" | "-") unary | primary
//	primary = number | "(" expr ")"
func Evaluate(expr string) (Number, error) {
	p := &parser{src: expr}
	p.skipSpace()
	if p.done() {
		return Number{}, errors.New("empty expression")
	}
	n, err := p.expr()
	if err != nil {
		return Number{}, err
	}
	p.skipSpace()
	if !p.done() {
		return Number{}, fmt.Errorf("unexpected %q at position %d", p.src[p.pos], p.pos)
	}
	return n, nil
}

type parser struct {
	src   string
	pos   int
	depth int
}

const maxDepth = 256

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) skipSpace() {
	for !p.done() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// peek returns the next non-space byte, or 0 at end of input.
func (p *parser) peek() byte {
	p.skipSpace()
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expr() (Number, error) {
	left, err := p.term()
	if err != nil {
		return Number{}, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return Number{}, err
		}
		if left, err = arith(op, left, right); err != nil {
			return Number{}, err
		}
	}
}

func (p *parser) term() (Number, error) {
	left, err := p.unary()
	if err != nil {
		return Number{}, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return Number{}, err
		}
		if left, err = arith(op, left, right); err != nil {
			return Number{}, err
		}
	}
}

func (p *parser) unary() (Number, error) {
	switch p.peek() {
	case '-':
		p.pos++
		n, err := p.nested(p.unary)
		if err != nil {
			return Number{}, err
		}
		return negate(n), nil
	case '+':
		p.pos++
		return p.nested(p.unary)
	}
	return p.primary()
}

func (p *parser) primary() (Number, error) {
	c := p.peek()
	switch {
	case c == 0:
		return Number{}, errors.New("unexpected end of expression")
	case c == '(':
		p.pos++
		n, err := p.nested(p.expr)
		if err != nil {
			return Number{}, err
		}
		if p.peek() != ')' {
			return Number{}, errors.New("missing closing parenthesis")
		}
		p.pos++
		return n, nil
	case c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return Number{}, fmt.Errorf("unexpected %q at position %d", c, p.pos)
	}
}

func (p *parser) nested(fn func() (Number, error)) (Number, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return Number{}, errors.New("expression nested too deeply")
	}
	return fn()
}

func (p *parser) number() (Number, error) {
	start := p.pos
	integer := true
	for !p.done() && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if !p.done() && p.src[p.pos] == '.' {
		integer = false
		p.pos++
		for !p.done() && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if !p.done() && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		integer = false
		p.pos++
		if !p.done() && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		digits := p.pos
		for !p.done() && isDigit(p.src[p.pos]) {
			p.pos++
		}
		if digits == p.pos {
			return Number{}, fmt.Errorf("malformed number %q", p.src[start:p.pos])
		}
	}
	literal := p.src[start:p.pos]
	if integer {
		v, ok := new(big.Int).SetString(literal, 10)
		if !ok {
			return Number{}, fmt.Errorf("malformed number %q", literal)
		}
		return intNumber(v), nil
	}
	value, err := strconv.ParseFloat(literal, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Number{}, fmt.Errorf("malformed number %q", literal)
	}
	return floatNumber(value), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
