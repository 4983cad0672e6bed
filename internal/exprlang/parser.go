package exprlang

import "fmt"

// Parser implements the restricted infix grammar of spec.md §4.1:
//
//	or < and < not < comparison < additive < multiplicative < call/primary
//
// measureNames is the set of measure names defined on the table the
// expression is being parsed for; a bare identifier matching one of them
// parses as a MeasureRef, otherwise as a Column. Qualified identifiers
// (alias.name) always parse as Column, since MeasureRef only ever names a
// same-table measure (spec.md §3).
type Parser struct {
	lex          *lexer
	tok          Token
	peeked       *Token
	measureNames map[string]bool
}

// NewParser constructs a parser over src. measureNames may be nil, in which
// case no bare identifier is ever treated as a MeasureRef (appropriate for
// parsing a measure's own `filter` string, which may not reference other
// measures).
func NewParser(src string, measureNames map[string]bool) *Parser {
	p := &Parser{lex: newLexer(src), measureNames: measureNames}
	p.advance()
	return p
}

// Parse parses src as a complete expression, failing on trailing garbage.
func Parse(src string, measureNames map[string]bool) (Expr, error) {
	p := NewParser(src, measureNames)
	expr, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.Type != TokenEOF {
		return nil, newParseError(p.tok, "unexpected trailing token %q", p.tok.Literal)
	}
	return expr, nil
}

func (p *Parser) advance() {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
		return
	}
	p.tok = p.lex.next()
}

func (p *Parser) peek() Token {
	if p.peeked == nil {
		t := p.lex.next()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *Parser) expect(tt TokenType, what string) (Token, error) {
	if p.tok.Type != tt {
		return Token{}, newParseError(p.tok, "expected %s, got %q", what, p.tok.Literal)
	}
	t := p.tok
	p.advance()
	return t, nil
}

// ParseExpr parses one full expression at the lowest ("or") precedence.
func (p *Parser) ParseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: TokenOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: TokenAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.tok.Type == TokenNot {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: TokenNot, Expr: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenType]bool{
	TokenEq: true, TokenNeq: true, TokenGt: true, TokenGte: true, TokenLt: true, TokenLte: true,
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if comparisonOps[p.tok.Type] {
		op := p.tok.Type
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenPlus || p.tok.Type == TokenMinus {
		op := p.tok.Type
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenStar || p.tok.Type == TokenSlash || p.tok.Type == TokenPercent {
		op := p.tok.Type
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.tok.Type {
	case TokenLParen:
		p.advance()
		inner, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case TokenMinus:
		// Unary minus desugars to 0 - expr so the AST stays free of a
		// dedicated negation node.
		p.advance()
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: TokenMinus, Left: &Literal{Value: IntValue(0)}, Right: operand}, nil
	case TokenNumber:
		lit := p.tok.Literal
		p.advance()
		return &Literal{Value: parseNumberLiteral(lit)}, nil
	case TokenString:
		lit := p.tok.Literal
		p.advance()
		return &Literal{Value: StringValue(lit)}, nil
	case TokenTrue:
		p.advance()
		return &Literal{Value: BoolValue(true)}, nil
	case TokenFalse:
		p.advance()
		return &Literal{Value: BoolValue(false)}, nil
	case TokenNull:
		p.advance()
		return &Literal{Value: NullValue}, nil
	case TokenIdent:
		return p.parseIdentOrCall()
	default:
		return nil, newParseError(p.tok, "expected an expression, got %q", p.tok.Literal)
	}
}

func parseNumberLiteral(lit string) Value {
	isFloat := false
	for _, r := range lit {
		if r == '.' {
			isFloat = true
			break
		}
	}
	if isFloat {
		var f float64
		fmt.Sscanf(lit, "%g", &f)
		return FloatValue(f)
	}
	var i int64
	fmt.Sscanf(lit, "%d", &i)
	return IntValue(i)
}

func (p *Parser) parseIdentOrCall() (Expr, error) {
	name := p.tok.Literal
	p.advance()

	// Qualified identifier: alias.name — always a Column.
	if p.tok.Type == TokenDot {
		p.advance()
		field, err := p.expect(TokenIdent, "a field name after '.'")
		if err != nil {
			return nil, err
		}
		return &Column{Table: name, Name: field.Literal}, nil
	}

	// Function call.
	if p.tok.Type == TokenLParen {
		if !IsAllowedFunction(name) {
			return nil, newParseError(p.tok, "unknown function %q", name)
		}
		p.advance()
		args := []Expr{}
		if p.tok.Type != TokenRParen {
			for {
				arg, err := p.ParseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.tok.Type != TokenComma {
					break
				}
				p.advance()
			}
		}
		if _, err := p.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return &Function{Name: name, Args: args}, nil
	}

	// Bare identifier: MeasureRef if it names a same-table measure, else Column.
	if p.measureNames != nil && p.measureNames[name] {
		return &MeasureRef{Name: name}, nil
	}
	return &Column{Name: name}, nil
}
