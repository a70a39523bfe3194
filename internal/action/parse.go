package action

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shadowhtml/shadowhtml/internal/diag"
)

// maxTreeDepth bounds how deeply "sub" may nest, protecting handler
// installation from pathological input (spec.md §9). Depth overflow is a
// diagnostic, never a panic.
const maxTreeDepth = 64

// wireAction is the strict, additionalProperties:false JSON shape of one
// Action node (spec.md §6).
type wireAction struct {
	S            *string           `json:"s"`
	Hide         *bool             `json:"hide"`
	Delete       *bool             `json:"delete"`
	Edit         *wireEditSpec     `json:"edit"`
	Data         *wireDataSpec     `json:"data"`
	Append       []string          `json:"append"`
	Prepend      []string          `json:"prepend"`
	InsertBefore []string          `json:"insert_before"`
	InsertAfter  []string          `json:"insert_after"`
	Sub          []json.RawMessage `json:"sub"`
}

type wireEditSpec struct {
	// Attrs is kept as raw JSON, not decoded straight into a map, so its
	// key order survives long enough for decodeOrderedAttrs to preserve it
	// (spec.md §4.4 point 3: attrs entries apply "in insertion order").
	Attrs   json.RawMessage `json:"attrs"`
	Content *wireEditOp     `json:"content"`
}

// wireAttrEdit is one decoded attrs entry, in source order.
type wireAttrEdit struct {
	Name string
	Op   wireEditOp
}

// decodeOrderedAttrs walks raw's object tokens directly instead of
// decoding into a map, which is the only way to recover the JSON object's
// original key order. Each value is then decoded with the same
// DisallowUnknownFields strictness as every other node in the tree.
func decodeOrderedAttrs(raw json.RawMessage) ([]wireAttrEdit, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("attrs must be an object")
	}

	var out []wireAttrEdit
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("attrs key must be a string")
		}
		var op wireEditOp
		if err := dec.Decode(&op); err != nil {
			return nil, fmt.Errorf("attrs[%q]: %w", key, err)
		}
		out = append(out, wireAttrEdit{Name: key, Op: op})
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}
	return out, nil
}

type wireEditOp struct {
	Op    string  `json:"op"`
	Val   *string `json:"val"`
	Match *string `json:"match"`
}

type wireDataSpec struct {
	Path   *string                   `json:"path"`
	Values map[string]wireValueSource `json:"values"`
}

type wireValueSource struct {
	Source string  `json:"source"`
	Name   *string `json:"name"`
}

// Parse decodes a top-level action document — a JSON array of Action
// objects — into a validated, best-effort tree. Parsing is total: every
// syntactic or semantic problem produces a diagnostic in sink and the
// offending node is pruned, but its siblings (and the rest of the document)
// still parse.
func Parse(data []byte, sink *diag.Sink) []*Action {
	var raw []json.RawMessage
	if err := strictDecode(data, &raw); err != nil {
		sink.Add(diag.KindMalformedJSON, "root action document: %v", err)
		return nil
	}

	var out []*Action
	for i, item := range raw {
		a, ok := parseNode(item, sink, 1)
		if !ok {
			continue
		}
		_ = i
		out = append(out, a)
	}
	return out
}

// strictDecode decodes exactly one JSON value with additionalProperties:false
// semantics and rejects trailing garbage after the value.
func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}

// parseNode validates and converts one wireAction at the given tree depth.
// It returns ok=false when the node must be pruned; the caller is
// responsible for continuing with the node's siblings regardless.
func parseNode(raw json.RawMessage, sink *diag.Sink, depth int) (*Action, bool) {
	if depth > maxTreeDepth {
		sink.Add(diag.KindSemanticViolation, "action tree depth exceeds %d, pruning subtree", maxTreeDepth)
		return nil, false
	}

	var w wireAction
	if err := strictDecode(raw, &w); err != nil {
		sink.Add(diag.KindMalformedJSON, "action node: %v", err)
		return nil, false
	}

	if w.S == nil || *w.S == "" {
		sink.Add(diag.KindSemanticViolation, "action node missing required selector, pruning")
		return nil, false
	}

	a := &Action{
		Selector:     *w.S,
		Hide:         boolVal(w.Hide),
		Delete:       boolVal(w.Delete),
		Append:       w.Append,
		Prepend:      w.Prepend,
		InsertBefore: w.InsertBefore,
		InsertAfter:  w.InsertAfter,
	}

	if w.Edit != nil {
		a.Edit = parseEditSpec(w.Edit, sink)
	}
	if w.Data != nil {
		a.Data = parseDataSpec(w.Data, sink)
	}

	if a.Delete && (a.Hide || a.Edit != nil || a.Data != nil ||
		len(a.Append) > 0 || len(a.Prepend) > 0 || len(a.InsertBefore) > 0 || len(a.InsertAfter) > 0) {
		sink.Add(diag.KindSemanticViolation,
			"selector %q combines delete with other mutations/data-collection; delete wins", a.Selector)
	}

	// sub is processed after the parent is otherwise validated.
	for _, subRaw := range w.Sub {
		child, ok := parseNode(subRaw, sink, depth+1)
		if !ok {
			continue
		}
		a.Sub = append(a.Sub, child)
	}

	return a, true
}

func parseEditSpec(w *wireEditSpec, sink *diag.Sink) *EditSpec {
	spec := &EditSpec{}
	if len(w.Attrs) > 0 {
		ordered, err := decodeOrderedAttrs(w.Attrs)
		if err != nil {
			sink.Add(diag.KindMalformedJSON, "edit.attrs: %v", err)
		}
		for _, wae := range ordered {
			op, ok := parseEditOp(wae.Op, sink, fmt.Sprintf("edit.attrs[%q]", wae.Name))
			if !ok {
				continue
			}
			spec.Attrs = append(spec.Attrs, AttrEdit{Name: wae.Name, EditOp: op})
		}
	}
	if w.Content != nil {
		if op, ok := parseEditOp(*w.Content, sink, "edit.content"); ok {
			spec.Content = &op
		}
	}
	return spec
}

func parseEditOp(w wireEditOp, sink *diag.Sink, context string) (EditOp, bool) {
	switch Op(w.Op) {
	case OpUpsert:
		if w.Val == nil {
			sink.Add(diag.KindSemanticViolation, "%s: upsert requires val, skipping", context)
			return EditOp{}, false
		}
		return EditOp{Op: OpUpsert, Val: *w.Val}, true
	case OpDelete:
		return EditOp{Op: OpDelete}, true
	case OpMatchReplace:
		if w.Match == nil || w.Val == nil {
			sink.Add(diag.KindSemanticViolation, "%s: match_replace requires match and val, skipping", context)
			return EditOp{}, false
		}
		return EditOp{Op: OpMatchReplace, Match: *w.Match, Val: *w.Val}, true
	default:
		sink.Add(diag.KindSemanticViolation, "%s: unknown op %q, skipping", context, w.Op)
		return EditOp{}, false
	}
}

func parseDataSpec(w *wireDataSpec, sink *diag.Sink) *DataSpec {
	spec := &DataSpec{
		PathSet: w.Path != nil,
	}
	if w.Path != nil {
		spec.Path = *w.Path
	}
	if len(w.Values) > 0 {
		spec.Values = make(map[string]ValueSource, len(w.Values))
		for key, wvs := range w.Values {
			vs, ok := parseValueSource(wvs, sink, key)
			if !ok {
				continue
			}
			spec.Values[key] = vs
		}
	}
	if !spec.PathSet && len(spec.Values) > 0 {
		sink.Add(diag.KindSemanticViolation, "data.values present without data.path; no data will be collected at this node")
	}
	return spec
}

func parseValueSource(w wireValueSource, sink *diag.Sink, key string) (ValueSource, bool) {
	switch Source(w.Source) {
	case SourceAttribute:
		if w.Name == nil || *w.Name == "" {
			sink.Add(diag.KindSemanticViolation, "data.values[%q]: Attribute requires name, dropping", key)
			return ValueSource{}, false
		}
		return ValueSource{Source: SourceAttribute, Name: *w.Name}, true
	case SourceContents:
		return ValueSource{Source: SourceContents}, true
	case SourceValue:
		return ValueSource{Source: SourceAttribute, Name: "value"}, true
	default:
		sink.Add(diag.KindSemanticViolation, "data.values[%q]: unknown source %q, dropping", key, w.Source)
		return ValueSource{}, false
	}
}

func boolVal(p *bool) bool {
	return p != nil && *p
}
