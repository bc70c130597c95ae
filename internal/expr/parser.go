package expr

import (
	"fmt"
	"unicode"
)

// Parse compiles expression source into an evaluable Expr.
func Parse(src string) (*Expr, error) {
	p := &parser{src: src}
	if err := p.next(); err != nil {
		return nil, err
	}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokenEOF {
		return nil, p.errorf(p.tok.pos, "unexpected %s", p.tok)
	}
	return &Expr{src: src, root: root}, nil
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenInt
	tokenName
	tokenOp     // + - * /
	tokenLParen // (
	tokenRParen // )
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokenEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", t.text)
}

type parser struct {
	src string
	pos int
	tok token
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &ParseError{Input: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// next advances to the following token, skipping whitespace.
func (p *parser) next() error {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokenEOF, pos: start}
		return nil
	}

	c := p.src[p.pos]
	switch {
	case c == '+' || c == '-' || c == '*' || c == '/':
		p.pos++
		p.tok = token{kind: tokenOp, text: string(c), pos: start}
	case c == '(':
		p.pos++
		p.tok = token{kind: tokenLParen, text: "(", pos: start}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokenRParen, text: ")", pos: start}
	case c >= '0' && c <= '9':
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		p.tok = token{kind: tokenInt, text: p.src[start:p.pos], pos: start}
	case isNameStart(rune(c)):
		for p.pos < len(p.src) && isNamePart(rune(p.src[p.pos])) {
			p.pos++
		}
		p.tok = token{kind: tokenName, text: p.src[start:p.pos], pos: start}
	default:
		return p.errorf(start, "unexpected character %q", string(c))
	}
	return nil
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNamePart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokenOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text[0]
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binary{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokenOp && (p.tok.text == "*" || p.tok.text == "/") {
		op := p.tok.text[0]
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binary{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.tok.kind == tokenOp && p.tok.text == "-" {
		if err := p.next(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unary{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.tok
	switch tok.kind {
	case tokenInt:
		value := int64(0)
		for i := 0; i < len(tok.text); i++ {
			value = value*10 + int64(tok.text[i]-'0')
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return &literal{value: value}, nil

	case tokenName:
		if err := p.next(); err != nil {
			return nil, err
		}
		return &variable{name: tok.text}, nil

	case tokenLParen:
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokenRParen {
			return nil, p.errorf(p.tok.pos, "expected ')', got %s", p.tok)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.errorf(tok.pos, "expected value, got %s", tok)
}
