package driver

import (
	"tirc/internal/classes"
	"tirc/internal/layout"
	"tirc/internal/types"
)

// FieldLayout places one field of a class body.
type FieldLayout struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset int    `json:"offset"`
}

// ClassLayout is the storage layout of one non-generic class: the value
// itself for inline classes, the heap body behind the handle otherwise.
type ClassLayout struct {
	Class  string        `json:"class"`
	Kind   string        `json:"kind"`
	Inline bool          `json:"inline"`
	Size   int           `json:"size"`
	Align  int           `json:"align"`
	Fields []FieldLayout `json:"fields,omitempty"`
	// Enum bodies only.
	TagSize       int `json:"tag_size,omitempty"`
	PayloadOffset int `json:"payload_offset,omitempty"`
}

func classLayout(p *layout.Planner, in *types.Interner, def *classes.ClassDef) (ClassLayout, error) {
	body, err := p.BodyLayout(def)
	if err != nil {
		return ClassLayout{}, err
	}
	cl := ClassLayout{
		Class:         def.Name,
		Kind:          def.Kind.String(),
		Inline:        body.Inline,
		Size:          body.Size,
		Align:         body.Align,
		TagSize:       body.TagSize,
		PayloadOffset: body.PayloadOffset,
	}
	if !def.IsEnum() {
		for i, f := range def.Fields {
			cl.Fields = append(cl.Fields, FieldLayout{Name: f.Name, Type: in.String(f.Type), Offset: body.FieldOffsets[i]})
		}
	}
	return cl, nil
}
