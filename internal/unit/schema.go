package unit

// The structs below mirror the TOML layout of a checked unit file. Keys
// missing from a table keep their zero value; unknown keys are reported.

type unitDoc struct {
	Format  string     `toml:"format"`
	Name    string     `toml:"name"`
	Classes []classDoc `toml:"class"`
	Impls   []implDoc  `toml:"impl"`
}

type classDoc struct {
	Name       string       `toml:"name"`
	Kind       string       `toml:"kind"`
	Inline     bool         `toml:"inline"`
	TypeParams []string     `toml:"type_params"`
	Fields     []fieldDoc   `toml:"field"`
	Variants   []variantDoc `toml:"variant"`
	Methods    []methodDoc  `toml:"method"`
	At         string       `toml:"at"`
}

type fieldDoc struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	RefOnly bool   `toml:"ref_only"`
	At      string `toml:"at"`
}

type variantDoc struct {
	Name    string   `toml:"name"`
	Payload []string `toml:"payload"`
	At      string   `toml:"at"`
}

type paramDoc struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
	At   string `toml:"at"`
}

type methodDoc struct {
	Name       string     `toml:"name"`
	Receiver   string     `toml:"receiver"`
	Params     []paramDoc `toml:"params"`
	Returns    string     `toml:"returns"`
	Destructor bool       `toml:"destructor"`
	Override   bool       `toml:"override"`
	Body       []stmtDoc  `toml:"body"`
	At         string     `toml:"at"`
}

type implDoc struct {
	Class   string      `toml:"class"`
	Fields  []fieldDoc  `toml:"field"`
	Methods []methodDoc `toml:"method"`
	At      string      `toml:"at"`
}

type stmtDoc struct {
	Op    string    `toml:"op"`
	Name  string    `toml:"name"`
	Type  string    `toml:"type"`
	Value *exprDoc  `toml:"value"`
	Cond  *exprDoc  `toml:"cond"`
	Then  []stmtDoc `toml:"then"`
	Else  []stmtDoc `toml:"else"`
	Arms  []armDoc  `toml:"arms"`
	At    string    `toml:"at"`
}

type armDoc struct {
	Variant  string    `toml:"variant"`
	Bindings []string  `toml:"bindings"`
	Body     []stmtDoc `toml:"body"`
	At       string    `toml:"at"`
}

type exprDoc struct {
	Op       string    `toml:"op"`
	Int      int64     `toml:"int"`
	Float    float64   `toml:"float"`
	Str      string    `toml:"str"`
	Bool     bool      `toml:"bool"`
	Name     string    `toml:"name"`
	Move     bool      `toml:"move"`
	Value    *exprDoc  `toml:"value"`
	Receiver *exprDoc  `toml:"receiver"`
	Class    string    `toml:"class"`
	Method   string    `toml:"method"`
	Variant  string    `toml:"variant"`
	TypeArgs []string  `toml:"type_args"`
	Args     []exprDoc `toml:"args"`
	Try      bool      `toml:"try"`
	At       string    `toml:"at"`
}
