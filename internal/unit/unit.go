// Package unit reads checked units: TOML files carrying the class
// declarations and move-annotated method bodies that the lowering core
// consumes.
//
// A unit looks like this:
//
//	format = "1.0"
//	name = "shapes"
//
//	[[class]]
//	name = "Person"
//	at = "4:1"
//	field = [{ name = "name", type = "String" }]
//
//	[[class.method]]
//	name = "take"
//	receiver = "fn move"
//	returns = "String"
//	body = [{ op = "return", value = { op = "field", name = "name", move = true } }]
package unit

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/unicode/norm"

	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/hir"
	"tirc/internal/source"
	"tirc/internal/types"
)

// FormatConstraint is the range of unit format versions this reader accepts.
const FormatConstraint = ">= 1.0, < 2.0"

// Impl is an `impl` block reopening an already declared class.
type Impl struct {
	Class     string
	Reopening classes.Reopening
}

// Unit is a decoded checked unit.
type Unit struct {
	Name    string
	Path    string
	File    source.FileID
	Hash    [32]byte
	Format  *semver.Version
	Classes []*classes.ClassDef
	Impls   []Impl
}

// Load reads path into fs and decodes it.
func Load(fs *source.FileSet, in *types.Interner, path string) (*Unit, error) {
	id, err := fs.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load unit %s: %w", path, err)
	}
	return Decode(fs, in, id)
}

// Decode decodes a file already present in fs. Declaration-level problems
// are returned together as a diag.ErrorList.
func Decode(fs *source.FileSet, in *types.Interner, id source.FileID) (*Unit, error) {
	file := fs.Get(id)
	if file == nil {
		return nil, fmt.Errorf("unknown file id %d", id)
	}
	l := &loader{file: file, in: in}

	var doc unitDoc
	meta, err := toml.Decode(string(file.Content), &doc)
	if err != nil {
		return nil, l.syntaxError(err)
	}
	for _, key := range meta.Undecoded() {
		l.errorf(diag.UnitFormat, l.fileSpan(), "unknown key %q", key.String())
	}
	version, ok := l.checkFormat(doc.Format)
	if !ok {
		return nil, l.errs.Err()
	}

	u := &Unit{
		Name:   doc.Name,
		Path:   file.Path,
		File:   id,
		Hash:   file.Hash,
		Format: version,
	}
	if u.Name == "" {
		u.Name = strings.TrimSuffix(filepath.Base(file.Path), filepath.Ext(file.Path))
	}

	scope := &typeScope{in: in, classes: make(map[string]int, len(doc.Classes))}
	params := make(map[string][]string, len(doc.Classes))
	for _, c := range doc.Classes {
		name := norm.NFC.String(c.Name)
		if _, seen := scope.classes[name]; !seen {
			scope.classes[name] = len(c.TypeParams)
			params[name] = c.TypeParams
		}
	}
	for i := range doc.Classes {
		if def := l.class(scope, &doc.Classes[i]); def != nil {
			u.Classes = append(u.Classes, def)
		}
	}
	for i := range doc.Impls {
		d := &doc.Impls[i]
		span := l.at(d.At, l.fileSpan())
		name := l.require(d.Class, "impl.class", span)
		cs := scope.withParams(params[norm.NFC.String(name)])
		impl := Impl{Class: name, Reopening: classes.Reopening{Span: span}}
		for j := range d.Fields {
			impl.Reopening.Fields = append(impl.Reopening.Fields, l.field(cs, &d.Fields[j], span))
		}
		for j := range d.Methods {
			if m := l.method(cs, &d.Methods[j], span); m != nil {
				impl.Reopening.Methods = append(impl.Reopening.Methods, m)
			}
		}
		u.Impls = append(u.Impls, impl)
	}
	if err := l.errs.Err(); err != nil {
		return nil, err
	}
	return u, nil
}

type loader struct {
	file *source.File
	in   *types.Interner
	errs diag.ErrorList
}

func (l *loader) errorf(code diag.Code, span source.Span, format string, args ...any) {
	l.errs = append(l.errs, diag.Errorf(code, span, format, args...))
}

func (l *loader) fileSpan() source.Span {
	return source.Span{File: l.file.ID}
}

func (l *loader) syntaxError(err error) error {
	span := l.fileSpan()
	var perr toml.ParseError
	if errors.As(err, &perr) && perr.Position.Line > 0 {
		if line, convErr := safecast.Conv[uint32](perr.Position.Line); convErr == nil {
			if sp, ok := l.file.SpanAt(source.LineCol{Line: line, Col: 1}); ok {
				span = sp
			}
		}
		return diag.Errorf(diag.UnitSyntax, span, "%s", perr.Message)
	}
	return diag.Errorf(diag.UnitSyntax, span, "%v", err)
}

func (l *loader) checkFormat(raw string) (*semver.Version, bool) {
	if raw == "" {
		l.errorf(diag.UnitFormat, l.fileSpan(), "missing format version")
		return nil, false
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		l.errorf(diag.UnitFormat, l.fileSpan(), "bad format version %q: %v", raw, err)
		return nil, false
	}
	c, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		l.errorf(diag.UnitFormat, l.fileSpan(), "bad format constraint: %v", err)
		return nil, false
	}
	if !c.Check(v) {
		l.errorf(diag.UnitFormat, l.fileSpan(), "unsupported format %s, want %s", v, FormatConstraint)
		return nil, false
	}
	return v, true
}

// at converts a "line:col" position into a span running to the end of that
// line. An empty position inherits parent.
func (l *loader) at(pos string, parent source.Span) source.Span {
	if pos == "" {
		return parent
	}
	lineStr, colStr, ok := strings.Cut(pos, ":")
	if !ok {
		colStr = "1"
		lineStr = pos
	}
	line, err1 := strconv.ParseUint(strings.TrimSpace(lineStr), 10, 32)
	col, err2 := strconv.ParseUint(strings.TrimSpace(colStr), 10, 32)
	if err1 != nil || err2 != nil {
		l.errorf(diag.UnitInvalidValue, parent, "bad position %q, want line:col", pos)
		return parent
	}
	sp, ok := l.file.SpanAt(source.LineCol{Line: uint32(line), Col: uint32(col)}) //nolint:gosec // parsed with bitSize 32
	if !ok {
		l.errorf(diag.UnitInvalidValue, parent, "position %q is outside the file", pos)
		return parent
	}
	return sp
}

func (l *loader) require(v, what string, span source.Span) string {
	if strings.TrimSpace(v) == "" {
		l.errorf(diag.UnitInvalidValue, span, "missing %s", what)
	}
	return v
}

func (l *loader) typeOf(scope *typeScope, expr string, span source.Span) types.TypeID {
	t, err := scope.parse(expr, span)
	if err != nil {
		l.errs = append(l.errs, diag.Flatten(err)...)
		return types.NoTypeID
	}
	return t
}

func (l *loader) class(scope *typeScope, d *classDoc) *classes.ClassDef {
	span := l.at(d.At, l.fileSpan())
	def := &classes.ClassDef{
		Name:       l.require(d.Name, "class.name", span),
		Inline:     d.Inline,
		TypeParams: d.TypeParams,
		Span:       span,
	}
	switch strings.ToLower(d.Kind) {
	case "", "class", "regular":
		def.Kind = classes.KindRegular
	case "enum":
		def.Kind = classes.KindEnum
	case "process", "async":
		def.Kind = classes.KindProcess
	default:
		l.errorf(diag.UnitInvalidValue, span, "unknown class kind %q", d.Kind)
		return nil
	}

	cs := scope.withParams(d.TypeParams)
	for i := range d.Fields {
		def.Fields = append(def.Fields, l.field(cs, &d.Fields[i], span))
	}
	for i := range d.Variants {
		v := &d.Variants[i]
		vs := l.at(v.At, span)
		variant := classes.Variant{Name: l.require(v.Name, "variant.name", vs), Span: vs}
		for _, p := range v.Payload {
			variant.Payload = append(variant.Payload, classes.FieldDef{Type: l.typeOf(cs, p, vs), Span: vs})
		}
		def.Variants = append(def.Variants, variant)
	}
	for i := range d.Methods {
		if m := l.method(cs, &d.Methods[i], span); m != nil {
			def.Methods = append(def.Methods, m)
		}
	}
	return def
}

func (l *loader) field(scope *typeScope, d *fieldDoc, parent source.Span) classes.FieldDef {
	span := l.at(d.At, parent)
	f := classes.FieldDef{
		Name: l.require(d.Name, "field.name", span),
		Type: l.typeOf(scope, l.require(d.Type, "field.type", span), span),
		Span: span,
	}
	if d.RefOnly {
		f.Qualifier = classes.QualRefOnly
	}
	return f
}

func (l *loader) method(scope *typeScope, d *methodDoc, parent source.Span) *classes.MethodDef {
	span := l.at(d.At, parent)
	recv, ok := parseReceiver(d.Receiver)
	if !ok {
		l.errorf(diag.UnitInvalidValue, span, "unknown receiver %q", d.Receiver)
		return nil
	}
	m := &classes.MethodDef{
		Name:       l.require(d.Name, "method.name", span),
		Receiver:   recv,
		Destructor: d.Destructor,
		Override:   d.Override,
		Span:       span,
	}
	for i := range d.Params {
		p := &d.Params[i]
		ps := l.at(p.At, span)
		m.Params = append(m.Params, classes.Param{
			Name: l.require(p.Name, "param.name", ps),
			Type: l.typeOf(scope, l.require(p.Type, "param.type", ps), ps),
			Span: ps,
		})
	}
	if d.Returns != "" {
		m.Returns = l.typeOf(scope, d.Returns, span)
	}
	c := &bodyConverter{l: l, scope: scope}
	m.Body = &hir.Body{Span: span, Stmts: c.stmts(d.Body, span)}
	return m
}

// parseReceiver accepts the declaration forms printed by ReceiverMode.String.
func parseReceiver(s string) (classes.ReceiverMode, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return classes.ReceiverImmutable, true
	}
	for r := classes.ReceiverImmutable; r <= classes.ReceiverAsyncMutable; r++ {
		if r.String() == s {
			return r, true
		}
	}
	return 0, false
}
