package expr

import (
	"fmt"
	"strconv"
)

// tokenType represents the type of a lexical token.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdentifier
	tokenNumber
	tokenString
	tokenBool
	tokenNull
	tokenDot
	tokenComma
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenEQ
	tokenNE
	tokenLT
	tokenLE
	tokenGT
	tokenGE
	tokenAnd
	tokenOr
	tokenNot
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenPercent
)

// token represents a lexical token.
type token struct {
	typ   tokenType
	value string
}

// tokenize converts an expression string into a slice of tokens.
func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(expr) {
		// Skip whitespace
		if expr[i] == ' ' || expr[i] == '\t' || expr[i] == '\n' || expr[i] == '\r' {
			i++
			continue
		}

		// Single character tokens
		switch expr[i] {
		case '.':
			tokens = append(tokens, token{typ: tokenDot, value: "."})
			i++
			continue
		case ',':
			tokens = append(tokens, token{typ: tokenComma, value: ","})
			i++
			continue
		case '(':
			tokens = append(tokens, token{typ: tokenLParen, value: "("})
			i++
			continue
		case ')':
			tokens = append(tokens, token{typ: tokenRParen, value: ")"})
			i++
			continue
		case '[':
			tokens = append(tokens, token{typ: tokenLBracket, value: "["})
			i++
			continue
		case ']':
			tokens = append(tokens, token{typ: tokenRBracket, value: "]"})
			i++
			continue
		case '+':
			tokens = append(tokens, token{typ: tokenPlus, value: "+"})
			i++
			continue
		case '-':
			tokens = append(tokens, token{typ: tokenMinus, value: "-"})
			i++
			continue
		case '*':
			tokens = append(tokens, token{typ: tokenStar, value: "*"})
			i++
			continue
		case '/':
			tokens = append(tokens, token{typ: tokenSlash, value: "/"})
			i++
			continue
		case '%':
			tokens = append(tokens, token{typ: tokenPercent, value: "%"})
			i++
			continue
		}

		// Multi-character operators
		if i+1 < len(expr) {
			switch expr[i : i+2] {
			case "==":
				tokens = append(tokens, token{typ: tokenEQ, value: "=="})
				i += 2
				continue
			case "!=":
				tokens = append(tokens, token{typ: tokenNE, value: "!="})
				i += 2
				continue
			case "<=":
				tokens = append(tokens, token{typ: tokenLE, value: "<="})
				i += 2
				continue
			case ">=":
				tokens = append(tokens, token{typ: tokenGE, value: ">="})
				i += 2
				continue
			case "&&":
				tokens = append(tokens, token{typ: tokenAnd, value: "&&"})
				i += 2
				continue
			case "||":
				tokens = append(tokens, token{typ: tokenOr, value: "||"})
				i += 2
				continue
			}
		}

		// Single character comparison operators
		switch expr[i] {
		case '<':
			tokens = append(tokens, token{typ: tokenLT, value: "<"})
			i++
			continue
		case '>':
			tokens = append(tokens, token{typ: tokenGT, value: ">"})
			i++
			continue
		case '!':
			tokens = append(tokens, token{typ: tokenNot, value: "!"})
			i++
			continue
		}

		// String literals
		if expr[i] == '"' || expr[i] == '\'' {
			quote := expr[i]
			i++
			start := i
			for i < len(expr) && expr[i] != quote {
				if expr[i] == '\\' && i+1 < len(expr) {
					i += 2 // Skip escaped character
				} else {
					i++
				}
			}
			if i >= len(expr) {
				return nil, fmt.Errorf("unterminated string literal")
			}
			tokens = append(tokens, token{typ: tokenString, value: expr[start:i]})
			i++ // Skip closing quote
			continue
		}

		// Numbers
		if expr[i] >= '0' && expr[i] <= '9' {
			start := i
			for i < len(expr) && ((expr[i] >= '0' && expr[i] <= '9') || expr[i] == '.') {
				i++
			}
			tokens = append(tokens, token{typ: tokenNumber, value: expr[start:i]})
			continue
		}

		// Identifiers and keywords
		if (expr[i] >= 'a' && expr[i] <= 'z') || (expr[i] >= 'A' && expr[i] <= 'Z') || expr[i] == '_' {
			start := i
			for i < len(expr) && ((expr[i] >= 'a' && expr[i] <= 'z') ||
				(expr[i] >= 'A' && expr[i] <= 'Z') ||
				(expr[i] >= '0' && expr[i] <= '9') ||
				expr[i] == '_') {
				i++
			}
			value := expr[start:i]

			switch value {
			case "true", "false":
				tokens = append(tokens, token{typ: tokenBool, value: value})
			case "null", "nil":
				tokens = append(tokens, token{typ: tokenNull, value: value})
			default:
				tokens = append(tokens, token{typ: tokenIdentifier, value: value})
			}
			continue
		}

		return nil, fmt.Errorf("unexpected character at position %d: %c", i, expr[i])
	}

	tokens = append(tokens, token{typ: tokenEOF})
	return tokens, nil
}

// parser implements a recursive descent parser that evaluates as it parses.
// Every production consumes from a shared step budget so runaway expressions
// fail with a budget error instead of stalling the run.
type parser struct {
	tokens    []token
	pos       int
	bindings  map[string]any
	evaluator *Evaluator
	budget    int
}

// current returns the current token.
func (p *parser) current() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokenEOF}
	}
	return p.tokens[p.pos]
}

// advance moves to the next token.
func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

// expect checks that the current token has the expected type and advances.
func (p *parser) expect(typ tokenType) error {
	if p.current().typ != typ {
		return fmt.Errorf("expected token type %v, got %q", typ, p.current().value)
	}
	p.advance()
	return nil
}

// step consumes one unit of the evaluation budget.
func (p *parser) step() error {
	p.budget--
	if p.budget < 0 {
		return fmt.Errorf("expression exceeded evaluation step budget")
	}
	return nil
}

// parseExpression parses the top-level expression (OR has lowest precedence).
func (p *parser) parseExpression() (any, error) {
	return p.parseOr()
}

// parseOr parses logical OR expressions.
func (p *parser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().typ == tokenOr {
		if err := p.step(); err != nil {
			return nil, err
		}
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		leftBool, lok := left.(bool)
		rightBool, rok := right.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("|| operator requires boolean operands")
		}

		left = leftBool || rightBool
	}

	return left, nil
}

// parseAnd parses logical AND expressions.
func (p *parser) parseAnd() (any, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().typ == tokenAnd {
		if err := p.step(); err != nil {
			return nil, err
		}
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		leftBool, lok := left.(bool)
		rightBool, rok := right.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("&& operator requires boolean operands")
		}

		left = leftBool && rightBool
	}

	return left, nil
}

// parseNot parses logical NOT expressions.
func (p *parser) parseNot() (any, error) {
	if p.current().typ == tokenNot {
		if err := p.step(); err != nil {
			return nil, err
		}
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		b, ok := operand.(bool)
		if !ok {
			return nil, fmt.Errorf("! operator requires boolean operand")
		}

		return !b, nil
	}

	return p.parseComparison()
}

// parseComparison parses comparison expressions.
func (p *parser) parseComparison() (any, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	switch tok.typ {
	case tokenEQ, tokenNE, tokenLT, tokenLE, tokenGT, tokenGE:
		if err := p.step(); err != nil {
			return nil, err
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return compare(left, right, tok.typ)
	}

	return left, nil
}

// parseAdditive parses + and - expressions. The + operator concatenates when
// either operand is a string.
func (p *parser) parseAdditive() (any, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		if tok.typ != tokenPlus && tok.typ != tokenMinus {
			return left, nil
		}
		if err := p.step(); err != nil {
			return nil, err
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		if tok.typ == tokenPlus {
			if ls, ok := left.(string); ok {
				left = ls + stringify(right)
				continue
			}
			if rs, ok := right.(string); ok {
				left = stringify(left) + rs
				continue
			}
		}

		ln, lok := toNumber(left)
		rn, rok := toNumber(right)
		if !lok || !rok {
			return nil, fmt.Errorf("%s operator requires numeric operands, got %T and %T", tok.value, left, right)
		}
		if tok.typ == tokenPlus {
			left = ln + rn
		} else {
			left = ln - rn
		}
	}
}

// parseMultiplicative parses *, / and % expressions.
func (p *parser) parseMultiplicative() (any, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		if tok.typ != tokenStar && tok.typ != tokenSlash && tok.typ != tokenPercent {
			return left, nil
		}
		if err := p.step(); err != nil {
			return nil, err
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		ln, lok := toNumber(left)
		rn, rok := toNumber(right)
		if !lok || !rok {
			return nil, fmt.Errorf("%s operator requires numeric operands, got %T and %T", tok.value, left, right)
		}

		switch tok.typ {
		case tokenStar:
			left = ln * rn
		case tokenSlash:
			if rn == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			left = ln / rn
		case tokenPercent:
			if rn == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			left = float64(int64(ln) % int64(rn))
		}
	}
}

// parseUnary parses unary minus.
func (p *parser) parseUnary() (any, error) {
	if p.current().typ == tokenMinus {
		if err := p.step(); err != nil {
			return nil, err
		}
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n, ok := toNumber(operand)
		if !ok {
			return nil, fmt.Errorf("unary - requires numeric operand, got %T", operand)
		}
		return -n, nil
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, identifiers, function calls, and parentheses.
func (p *parser) parsePrimary() (any, error) {
	if err := p.step(); err != nil {
		return nil, err
	}

	tok := p.current()
	switch tok.typ {
	case tokenBool:
		p.advance()
		return tok.value == "true", nil

	case tokenNull:
		p.advance()
		return nil, nil

	case tokenNumber:
		p.advance()
		return strconv.ParseFloat(tok.value, 64)

	case tokenString:
		p.advance()
		return unescape(tok.value), nil

	case tokenLParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case tokenIdentifier:
		return p.parseIdentifierOrFunction()

	default:
		return nil, fmt.Errorf("unexpected token %q", tok.value)
	}
}

// parseIdentifierOrFunction parses either a function call or a binding path.
func (p *parser) parseIdentifierOrFunction() (any, error) {
	name := p.current().value
	p.advance()

	if p.current().typ == tokenLParen {
		return p.parseFunctionCall(name)
	}

	return p.resolveBindingPath(name)
}

// parseFunctionCall parses a function call with arguments.
func (p *parser) parseFunctionCall(name string) (any, error) {
	fn, ok := p.evaluator.functions[name]
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", name)
	}

	p.advance() // consume '('

	var args []any
	if p.current().typ != tokenRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.current().typ != tokenComma {
				break
			}
			p.advance() // consume ','
		}
	}

	if err := p.expect(tokenRParen); err != nil {
		return nil, err
	}

	return fn(args)
}

// resolveBindingPath resolves an identifier rooted at the bindings map,
// following dot access and bracket indexing. Missing fields resolve to nil so
// conditions can reference optional data; only an unknown root binding is an
// error, which keeps typos detectable.
func (p *parser) resolveBindingPath(name string) (any, error) {
	if p.bindings == nil {
		return nil, fmt.Errorf("unknown binding: %s", name)
	}
	current, ok := p.bindings[name]
	if !ok {
		return nil, fmt.Errorf("unknown binding: %s", name)
	}

	for {
		switch p.current().typ {
		case tokenDot:
			if err := p.step(); err != nil {
				return nil, err
			}
			p.advance()
			if p.current().typ != tokenIdentifier {
				return nil, fmt.Errorf("expected identifier after '.'")
			}
			field := p.current().value
			p.advance()

			m, ok := current.(map[string]any)
			if !ok {
				if current == nil {
					continue
				}
				return nil, fmt.Errorf("cannot access field %s on %T", field, current)
			}
			current = m[field]

		case tokenLBracket:
			if err := p.step(); err != nil {
				return nil, err
			}
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokenRBracket); err != nil {
				return nil, err
			}

			switch v := current.(type) {
			case map[string]any:
				key, ok := index.(string)
				if !ok {
					return nil, fmt.Errorf("map index must be string")
				}
				current = v[key]
			case []any:
				num, ok := index.(float64)
				if !ok {
					return nil, fmt.Errorf("array index must be number")
				}
				idx := int(num)
				if idx < 0 || idx >= len(v) {
					return nil, fmt.Errorf("array index out of bounds: %d", idx)
				}
				current = v[idx]
			default:
				return nil, fmt.Errorf("cannot index %T", current)
			}

		default:
			return current, nil
		}
	}
}

// compare performs comparison operations.
func compare(left, right any, op tokenType) (bool, error) {
	switch op {
	case tokenEQ:
		return valuesEqual(left, right), nil
	case tokenNE:
		return !valuesEqual(left, right), nil
	case tokenLT, tokenLE, tokenGT, tokenGE:
		return compareOrdered(left, right, op)
	default:
		return false, fmt.Errorf("unknown comparison operator")
	}
}

// valuesEqual checks equality between two values, comparing numbers
// numerically regardless of underlying Go type.
func valuesEqual(left, right any) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}

	if ln, lok := toNumber(left); lok {
		if rn, rok := toNumber(right); rok {
			// Avoid "1" == 1 surprises when both sides are strings.
			_, lstr := left.(string)
			_, rstr := right.(string)
			if !(lstr && rstr) {
				return ln == rn
			}
		}
	}

	switch l := left.(type) {
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	case string:
		r, ok := right.(string)
		return ok && l == r
	default:
		return false
	}
}

// compareOrdered performs ordered comparisons (<, <=, >, >=).
func compareOrdered(left, right any, op tokenType) (bool, error) {
	leftNum, leftOk := toNumber(left)
	rightNum, rightOk := toNumber(right)

	if !leftOk || !rightOk {
		leftStr, lok := left.(string)
		rightStr, rok := right.(string)
		if !lok || !rok {
			return false, fmt.Errorf("cannot compare %T and %T", left, right)
		}

		switch op {
		case tokenLT:
			return leftStr < rightStr, nil
		case tokenLE:
			return leftStr <= rightStr, nil
		case tokenGT:
			return leftStr > rightStr, nil
		case tokenGE:
			return leftStr >= rightStr, nil
		}
	}

	switch op {
	case tokenLT:
		return leftNum < rightNum, nil
	case tokenLE:
		return leftNum <= rightNum, nil
	case tokenGT:
		return leftNum > rightNum, nil
	case tokenGE:
		return leftNum >= rightNum, nil
	default:
		return false, fmt.Errorf("unknown comparison operator")
	}
}

// unescape processes backslash escapes inside string literals.
func unescape(s string) string {
	if len(s) == 0 {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, s[i])
			}
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
