package action

import (
	"testing"

	"github.com/shadowhtml/shadowhtml/internal/diag"
)

func TestParse_Minimal(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"s":"div"}]`), sink)
	if len(tree) != 1 {
		t.Fatalf("len(tree) = %d, want 1", len(tree))
	}
	if tree[0].Selector != "div" {
		t.Errorf("Selector = %q", tree[0].Selector)
	}
	if sink.Len() != 0 {
		t.Errorf("unexpected diagnostics: %v", sink.Strings())
	}
}

func TestParse_MissingSelectorPrunesNode(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"hide":true},{"s":"p"}]`), sink)
	if len(tree) != 1 || tree[0].Selector != "p" {
		t.Fatalf("expected only the valid sibling to survive, got %+v", tree)
	}
	if sink.Len() == 0 {
		t.Errorf("expected a diagnostic for the pruned node")
	}
}

func TestParse_MalformedJSONIsNonFatal(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`not json`), sink)
	if tree != nil {
		t.Errorf("expected nil tree for malformed root document, got %+v", tree)
	}
	if sink.Len() != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d", sink.Len())
	}
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"s":"div","bogus":1}]`), sink)
	if len(tree) != 0 {
		t.Errorf("expected node with unknown field to be pruned, got %+v", tree)
	}
	if sink.Len() != 1 {
		t.Errorf("expected one diagnostic, got %d", sink.Len())
	}
}

func TestParse_SubProcessedAfterParent(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"s":"div","sub":[{"s":"span"}]}]`), sink)
	if len(tree) != 1 {
		t.Fatalf("len(tree) = %d", len(tree))
	}
	if len(tree[0].Sub) != 1 || tree[0].Sub[0].Selector != "span" {
		t.Fatalf("expected one sub-action 'span', got %+v", tree[0].Sub)
	}
}

func TestParse_DepthGuard(t *testing.T) {
	sink := diag.New()
	// Build a chain nested past maxTreeDepth.
	doc := `{"s":"a"}`
	for i := 0; i < maxTreeDepth+5; i++ {
		doc = `{"s":"a","sub":[` + doc + `]}`
	}
	tree := Parse([]byte(`[`+doc+`]`), sink)
	if len(tree) != 1 {
		t.Fatalf("expected the root node to survive, got %+v", tree)
	}
	if sink.Len() == 0 {
		t.Errorf("expected a depth-guard diagnostic")
	}
}

func TestParse_EditOpVariants(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"s":"div","edit":{"attrs":{"class":{"op":"upsert","val":"x"}},"content":{"op":"match_replace","match":"a","val":"b"}}}]`), sink)
	if len(tree) != 1 {
		t.Fatalf("len(tree) = %d", len(tree))
	}
	a := tree[0]
	if a.Edit == nil || len(a.Edit.Attrs) != 1 ||
		a.Edit.Attrs[0].Name != "class" || a.Edit.Attrs[0].Op != OpUpsert || a.Edit.Attrs[0].Val != "x" {
		t.Errorf("unexpected attrs edit: %+v", a.Edit)
	}
	if a.Edit.Content == nil || a.Edit.Content.Op != OpMatchReplace || a.Edit.Content.Match != "a" {
		t.Errorf("unexpected content edit: %+v", a.Edit.Content)
	}
	if sink.Len() != 0 {
		t.Errorf("unexpected diagnostics: %v", sink.Strings())
	}
}

func TestParse_EditAttrsPreserveInsertionOrder(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"s":"div","edit":{"attrs":{`+
		`"data-c":{"op":"upsert","val":"3"},`+
		`"data-a":{"op":"upsert","val":"1"},`+
		`"data-b":{"op":"upsert","val":"2"}`+
		`}}}]`), sink)
	attrs := tree[0].Edit.Attrs
	if len(attrs) != 3 {
		t.Fatalf("len(attrs) = %d, want 3", len(attrs))
	}
	wantOrder := []string{"data-c", "data-a", "data-b"}
	for i, name := range wantOrder {
		if attrs[i].Name != name {
			t.Errorf("attrs[%d].Name = %q, want %q (JSON key order must survive)", i, attrs[i].Name, name)
		}
	}
	if sink.Len() != 0 {
		t.Errorf("unexpected diagnostics: %v", sink.Strings())
	}
}

func TestParse_EditOpMissingRequiredFieldIsDropped(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"s":"div","edit":{"attrs":{"class":{"op":"upsert"}}}}]`), sink)
	if len(tree[0].Edit.Attrs) != 0 {
		t.Errorf("expected upsert without val to be dropped, got %+v", tree[0].Edit.Attrs)
	}
	if sink.Len() == 0 {
		t.Errorf("expected a diagnostic")
	}
}

func TestParse_DataSpecValueSourceVariants(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"s":"div","data":{"path":"items.","values":{"a":{"source":"Attribute","name":"href"},"b":{"source":"Contents"},"c":{"source":"Value"}}}}]`), sink)
	d := tree[0].Data
	if !d.PathSet || d.Path != "items." {
		t.Fatalf("unexpected path: %+v", d)
	}
	if d.Values["a"].Source != SourceAttribute || d.Values["a"].Name != "href" {
		t.Errorf("unexpected Attribute source: %+v", d.Values["a"])
	}
	if d.Values["b"].Source != SourceContents {
		t.Errorf("unexpected Contents source: %+v", d.Values["b"])
	}
	if d.Values["c"].Source != SourceAttribute || d.Values["c"].Name != "value" {
		t.Errorf("Value should desugar to Attribute(name=value), got %+v", d.Values["c"])
	}
	if sink.Len() != 0 {
		t.Errorf("unexpected diagnostics: %v", sink.Strings())
	}
}

func TestParse_DataValuesWithoutPathDiagnoses(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"s":"div","data":{"values":{"a":{"source":"Value"}}}}]`), sink)
	if tree[0].Data.PathSet {
		t.Errorf("expected PathSet to be false")
	}
	if sink.Len() == 0 {
		t.Errorf("expected a diagnostic for values without path")
	}
}

func TestParse_DeleteCombinedWithMutationDiagnoses(t *testing.T) {
	sink := diag.New()
	tree := Parse([]byte(`[{"s":"div","delete":true,"hide":true}]`), sink)
	if !tree[0].Delete {
		t.Fatalf("expected delete to still be set")
	}
	if sink.Len() == 0 {
		t.Errorf("expected a diagnostic for combining delete with hide")
	}
}
