package engine

import (
	"testing"

	"github.com/shadowhtml/shadowhtml/internal/action"
	"github.com/shadowhtml/shadowhtml/internal/diag"
	"github.com/shadowhtml/shadowhtml/internal/harvest"
)

func runInstalled(t *testing.T, html string, tree []*action.Action) (string, *harvest.Document, *diag.Sink) {
	t.Helper()
	sink := diag.New()
	doc := harvest.New(sink)
	rw := NewDefaultRewriter()
	if err := Install(tree, rw, doc, sink); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := rw.Write([]byte(html)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := rw.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	return string(out), doc, sink
}

func TestInstall_Delete(t *testing.T) {
	tree := []*action.Action{{Selector: "script", Delete: true}}
	out, _, _ := runInstalled(t, `<p>x</p><script>bad()</script>`, tree)
	if out != `<p>x</p>` {
		t.Errorf("got %q", out)
	}
}

func TestInstall_Hide(t *testing.T) {
	tree := []*action.Action{{Selector: "div", Hide: true}}
	out, _, _ := runInstalled(t, `<div>x</div>`, tree)
	if out != `<div style="display:none">x</div>` {
		t.Errorf("got %q", out)
	}
}

func TestInstall_HideMergesExistingStyle(t *testing.T) {
	tree := []*action.Action{{Selector: "div", Hide: true}}
	out, _, _ := runInstalled(t, `<div style="color:red">x</div>`, tree)
	if out != `<div style="color:red; display:none">x</div>` {
		t.Errorf("got %q", out)
	}
}

func TestInstall_EditAttrsUpsertDeleteMatchReplace(t *testing.T) {
	tree := []*action.Action{{
		Selector: "a",
		Edit: &action.EditSpec{Attrs: []action.AttrEdit{
			{Name: "rel", EditOp: action.EditOp{Op: action.OpUpsert, Val: "nofollow"}},
			{Name: "target", EditOp: action.EditOp{Op: action.OpDelete}},
			{Name: "href", EditOp: action.EditOp{Op: action.OpMatchReplace, Match: "http://", Val: "https://"}},
		}},
	}}
	out, _, _ := runInstalled(t, `<a href="http://example.com" target="_blank">x</a>`, tree)
	if out != `<a href="https://example.com" rel="nofollow">x</a>` {
		t.Errorf("got %q", out)
	}
}

// TestInstall_EditAttrsApplyInInsertionOrder pins spec.md §4.4 point 3:
// new attributes must render in the JSON object's original key order, not
// whatever order a Go map would have yielded.
func TestInstall_EditAttrsApplyInInsertionOrder(t *testing.T) {
	tree := []*action.Action{{
		Selector: "div",
		Edit: &action.EditSpec{Attrs: []action.AttrEdit{
			{Name: "data-c", EditOp: action.EditOp{Op: action.OpUpsert, Val: "3"}},
			{Name: "data-a", EditOp: action.EditOp{Op: action.OpUpsert, Val: "1"}},
			{Name: "data-b", EditOp: action.EditOp{Op: action.OpUpsert, Val: "2"}},
		}},
	}}
	out, _, _ := runInstalled(t, `<div>x</div>`, tree)
	want := `<div data-c="3" data-a="1" data-b="2">x</div>`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestInstall_EditContentUpsert(t *testing.T) {
	tree := []*action.Action{{
		Selector: "h1",
		Edit:     &action.EditSpec{Content: &action.EditOp{Op: action.OpUpsert, Val: "New Title"}},
	}}
	out, _, _ := runInstalled(t, `<h1>Old Title</h1>`, tree)
	if out != `<h1>New Title</h1>` {
		t.Errorf("got %q", out)
	}
}

func TestInstall_EditContentMatchReplaceNeedsFullText(t *testing.T) {
	tree := []*action.Action{{
		Selector: "p",
		Edit:     &action.EditSpec{Content: &action.EditOp{Op: action.OpMatchReplace, Match: "foo", Val: "bar"}},
	}}
	out, _, _ := runInstalled(t, `<p>foo <b>foo</b> foo</p>`, tree)
	if out != `<p>bar bar bar</p>` {
		t.Errorf("got %q", out)
	}
}

func TestInstall_SpliceFragments(t *testing.T) {
	tree := []*action.Action{{
		Selector:     "div",
		InsertBefore: []string{"<!--b-->"},
		Prepend:      []string{"<i>p</i>"},
		Append:       []string{"<i>a</i>"},
		InsertAfter:  []string{"<!--after-->"},
	}}
	out, _, _ := runInstalled(t, `<div>x</div>`, tree)
	want := `<!--b--><div><i>p</i>x<i>a</i></div><!--after-->`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestInstall_HarvestNestedContents(t *testing.T) {
	tree := []*action.Action{{
		Selector: "div#c",
		Sub: []*action.Action{{
			Selector: "span#n",
			Data: &action.DataSpec{PathSet: true, Path: "", Values: map[string]action.ValueSource{
				"city": {Source: action.SourceContents},
			}},
		}},
	}}
	_, doc, sink := runInstalled(t, `<div id="c"><span id="n">Smallville</span></div>`, tree)
	if doc.Root()["city"] != "Smallville" {
		t.Errorf("Root() = %+v", doc.Root())
	}
	if sink.Len() != 0 {
		t.Errorf("unexpected diagnostics: %v", sink.Strings())
	}
}

func TestInstall_HarvestArrayAppendOrder(t *testing.T) {
	tree := []*action.Action{{
		Selector: "li",
		Data: &action.DataSpec{PathSet: true, Path: "items.", Values: map[string]action.ValueSource{
			"t": {Source: action.SourceContents},
		}},
	}}
	_, doc, _ := runInstalled(t, `<ul><li>a</li><li>b</li></ul>`, tree)
	arr, ok := doc.Root()["items"].([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("items = %+v", doc.Root()["items"])
	}
	if arr[0].(map[string]any)["t"] != "a" || arr[1].(map[string]any)["t"] != "b" {
		t.Errorf("expected document order, got %+v", arr)
	}
}

func TestInstall_HarvestAttributeValue(t *testing.T) {
	tree := []*action.Action{{
		Selector: "input",
		Data: &action.DataSpec{PathSet: true, Path: "form", Values: map[string]action.ValueSource{
			"v": {Source: action.SourceAttribute, Name: "value"},
		}},
	}}
	_, doc, _ := runInstalled(t, `<input value="hi">`, tree)
	obj, ok := doc.Root()["form"].(map[string]any)
	if !ok || obj["v"] != "hi" {
		t.Errorf("form = %+v", doc.Root()["form"])
	}
}

func TestInstall_NestedHandlersInRegistrationOrder(t *testing.T) {
	tree := []*action.Action{{
		Selector: "div",
		Hide:     true,
		Sub: []*action.Action{{
			Selector: "p",
			Edit:     &action.EditSpec{Content: &action.EditOp{Op: action.OpUpsert, Val: "inner"}},
		}},
	}}
	out, _, _ := runInstalled(t, `<div><p>old</p></div>`, tree)
	if out != `<div style="display:none"><p>inner</p></div>` {
		t.Errorf("got %q", out)
	}
}
