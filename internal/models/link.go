package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// DisplayType controls how a referenced section is presented.
type DisplayType string

// Display types. The set is closed; DisplayPage is kept as a legacy alias
// of DisplayPanel for documents written against older tooling.
const (
	DisplayFootnote DisplayType = "footnote"
	DisplaySidenote DisplayType = "sidenote"
	DisplayMargin   DisplayType = "margin"
	DisplayOverlay  DisplayType = "overlay"
	DisplayInline   DisplayType = "inline"
	DisplayStretch  DisplayType = "stretch"
	DisplayPanel    DisplayType = "panel"
	DisplayPage     DisplayType = "page"
)

// DisplayTypes lists every accepted display value in canonical order.
var DisplayTypes = []DisplayType{
	DisplayFootnote, DisplaySidenote, DisplayMargin, DisplayOverlay,
	DisplayInline, DisplayStretch, DisplayPanel, DisplayPage,
}

// Valid reports whether d is a member of the display enum.
func (d DisplayType) Valid() bool {
	return slices.Contains(DisplayTypes, d)
}

// ExportHint tells exporters how to emit a referenced section.
type ExportHint string

// Export hints.
const (
	ExportAppendix ExportHint = "appendix"
	ExportInline   ExportHint = "inline"
	ExportOmit     ExportHint = "omit"
)

// ExportHints lists every accepted export value in canonical order.
var ExportHints = []ExportHint{ExportAppendix, ExportInline, ExportOmit}

// Valid reports whether e is a member of the export enum.
func (e ExportHint) Valid() bool {
	return slices.Contains(ExportHints, e)
}

// ParamValue is an extension parameter value: either a string or a
// valueless flag.
type ParamValue struct {
	Str  string
	Flag bool
}

// StringParam returns a string-valued parameter.
func StringParam(s string) ParamValue { return ParamValue{Str: s} }

// FlagParam returns a valueless flag parameter.
func FlagParam() ParamValue { return ParamValue{Flag: true} }

// String renders the value the way it would appear in a query string.
func (v ParamValue) String() string {
	if v.Flag {
		return "true"
	}
	return v.Str
}

// MarshalJSON encodes a flag as true and anything else as a string.
func (v ParamValue) MarshalJSON() ([]byte, error) {
	if v.Flag {
		return []byte("true"), nil
	}
	return json.Marshal(v.Str)
}

// UnmarshalJSON accepts a string or the literal true.
func (v *ParamValue) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if !b {
			return fmt.Errorf("models: extension flag must be true")
		}
		*v = FlagParam()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("models: extension value must be a string or true: %w", err)
	}
	*v = StringParam(s)
	return nil
}

// NodeRef is a parsed node: URL.
type NodeRef struct {
	ID      string
	Display DisplayType
	Export  ExportHint
	Extra   map[string]ParamValue
}

// ExtraKeys returns the extension parameter keys in lexicographic order.
func (r NodeRef) ExtraKeys() []string {
	return slices.Sorted(maps.Keys(r.Extra))
}

// Equal reports structural equality, ignoring the nil/empty distinction of Extra.
func (r NodeRef) Equal(o NodeRef) bool {
	if r.ID != o.ID || r.Display != o.Display || r.Export != o.Export {
		return false
	}
	return maps.Equal(r.Extra, o.Extra)
}

// MarshalJSON spreads extension parameters onto the object next to the
// known fields.
func (r NodeRef) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Extra)+3)
	for k, v := range r.Extra {
		m[k] = v
	}
	m["id"] = r.ID
	if r.Display != "" {
		m["display"] = r.Display
	}
	if r.Export != "" {
		m["export"] = r.Export
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the known fields and collects every other key as an
// extension parameter.
func (r *NodeRef) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := NodeRef{}
	for k, v := range raw {
		switch k {
		case "id":
			if err := json.Unmarshal(v, &out.ID); err != nil {
				return fmt.Errorf("models: ref id: %w", err)
			}
		case "display":
			if err := json.Unmarshal(v, &out.Display); err != nil {
				return fmt.Errorf("models: ref display: %w", err)
			}
		case "export":
			if err := json.Unmarshal(v, &out.Export); err != nil {
				return fmt.Errorf("models: ref export: %w", err)
			}
		default:
			var pv ParamValue
			if err := json.Unmarshal(v, &pv); err != nil {
				return fmt.Errorf("models: ref %s: %w", k, err)
			}
			if out.Extra == nil {
				out.Extra = make(map[string]ParamValue)
			}
			out.Extra[k] = pv
		}
	}
	*r = out
	return nil
}

// SourcePosition is a 0-based location. Character counts Unicode code
// points from the start of the line.
type SourcePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Link is one occurrence of a node: URL inside a section body.
type Link struct {
	Ref      NodeRef         `json:"ref"`
	SourceID string          `json:"sourceId"`
	Text     string          `json:"text,omitempty"`
	Start    *SourcePosition `json:"start,omitempty"`
	End      *SourcePosition `json:"end,omitempty"`
}
