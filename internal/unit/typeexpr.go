package unit

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"tirc/internal/diag"
	"tirc/internal/source"
	"tirc/internal/types"
)

// typeScope resolves the names of type expressions: built-in types, the
// classes declared by the unit and the type parameters of the enclosing
// class.
type typeScope struct {
	in      *types.Interner
	classes map[string]int // class name -> type parameter count
	params  []string
}

func (s *typeScope) withParams(params []string) *typeScope {
	return &typeScope{in: s.in, classes: s.classes, params: params}
}

type typeParser struct {
	scope *typeScope
	src   string
	pos   int
	span  source.Span
}

// parse reads a type expression:
//
//	type := ("ref" | "mut") type | name [ "[" type { "," type } "]" ]
func (s *typeScope) parse(expr string, span source.Span) (types.TypeID, error) {
	p := &typeParser{scope: s, src: norm.NFC.String(expr), span: span}
	t, err := p.typ()
	if err != nil {
		return types.NoTypeID, err
	}
	if tok := p.next(); tok != "" {
		return types.NoTypeID, p.errorf("unexpected %q after type", tok)
	}
	return t, nil
}

func (p *typeParser) errorf(format string, args ...any) error {
	return diag.Errorf(diag.UnitBadTypeExpr, p.span, "type %q: "+format, append([]any{p.src}, args...)...)
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) peek() string {
	save := p.pos
	tok := p.next()
	p.pos = save
	return tok
}

// next returns the following token: a punctuation byte or an identifier.
func (p *typeParser) next() string {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return ""
	}
	switch c := p.src[p.pos]; c {
	case '[', ']', ',':
		p.pos++
		return string(c)
	}
	start := p.pos
	for i, r := range p.src[start:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			p.pos = start + i
			if p.pos == start {
				p.pos++
			}
			return p.src[start:p.pos]
		}
	}
	p.pos = len(p.src)
	return p.src[start:]
}

func (p *typeParser) typ() (types.TypeID, error) {
	name := p.next()
	switch name {
	case "":
		return types.NoTypeID, p.errorf("missing type")
	case "[", "]", ",":
		return types.NoTypeID, p.errorf("unexpected %q", name)
	case "ref", "mut":
		elem, err := p.typ()
		if err != nil {
			return types.NoTypeID, err
		}
		if name == "ref" {
			return p.scope.in.Ref(elem), nil
		}
		return p.scope.in.Mut(elem), nil
	}
	if !isIdent(name) {
		return types.NoTypeID, p.errorf("invalid name %q", name)
	}

	var args []types.TypeID
	if p.peek() == "[" {
		p.next()
		for {
			arg, err := p.typ()
			if err != nil {
				return types.NoTypeID, err
			}
			args = append(args, arg)
			tok := p.next()
			if tok == "]" {
				break
			}
			if tok != "," {
				return types.NoTypeID, p.errorf("expected ',' or ']', found %q", tok)
			}
		}
	}
	return p.resolve(name, args)
}

func (p *typeParser) resolve(name string, args []types.TypeID) (types.TypeID, error) {
	in := p.scope.in
	b := in.Builtins()
	builtins := map[string]types.TypeID{
		"Nil": b.Nil, "Bool": b.Bool, "Int": b.Int, "Float": b.Float, "Pointer": b.Pointer, "String": b.String,
	}
	if t, ok := builtins[name]; ok {
		if len(args) > 0 {
			return types.NoTypeID, p.argCount(name, 0, len(args))
		}
		return t, nil
	}
	if name == "Array" {
		if len(args) != 1 {
			return types.NoTypeID, p.argCount(name, 1, len(args))
		}
		return in.Array(args[0]), nil
	}
	for _, param := range p.scope.params {
		if param == name {
			if len(args) > 0 {
				return types.NoTypeID, p.argCount(name, 0, len(args))
			}
			return in.Param(name), nil
		}
	}
	want, ok := p.scope.classes[name]
	if !ok {
		return types.NoTypeID, diag.Errorf(diag.DeclUnknownType, p.span, "unknown type %q", name)
	}
	if len(args) != want {
		return types.NoTypeID, p.argCount(name, want, len(args))
	}
	return in.Class(name, args), nil
}

func (p *typeParser) argCount(name string, want, got int) error {
	return diag.Errorf(diag.DeclTypeArgCount, p.span, "%s expects %d type arguments, got %d", name, want, got)
}

func isIdent(s string) bool {
	if s == "" || strings.ContainsAny(s, "[], ") {
		return false
	}
	for i, r := range s {
		if !unicode.IsLetter(r) && r != '_' && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
