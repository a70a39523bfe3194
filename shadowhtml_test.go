package shadowhtml_test

import (
	"strings"
	"testing"

	"github.com/shadowhtml/shadowhtml"
)

// These are the six literal end-to-end scenarios and the pass-through
// identity property from spec.md §8.

// An empty action tree leaves the document otherwise byte-identical; the
// one required change is the harvested document (here an empty object,
// since nothing was collected) spliced before </body> per spec.md §4.6 and
// the "Data emission exactness" property, which holds unconditionally.
func TestProcessHTML_PassThroughIdentityWithEmptyActionTree(t *testing.T) {
	html := `<html><head><title>t</title></head><body><p class="x">hello</p></body></html>`
	out, diags, err := shadowhtml.ProcessHTML([]byte(`[]`), []byte(html))
	if err != nil {
		t.Fatalf("ProcessHTML: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	want := `<html><head><title>t</title></head><body><p class="x">hello</p>{}</body></html>`
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestProcessHTML_HideMergesStyle(t *testing.T) {
	actions := `[{"s":"a","hide":true}]`
	out, _, err := shadowhtml.ProcessHTML([]byte(actions), []byte(`<a style="color:red">x</a>`))
	if err != nil {
		t.Fatalf("ProcessHTML: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "color:red") || !strings.Contains(got, "display:none") {
		t.Errorf("expected merged style declaration, got %q", got)
	}
}

func TestProcessHTML_DeleteWinsOverHide(t *testing.T) {
	actions := `[{"s":"p","hide":true,"delete":true}]`
	out, diags, err := shadowhtml.ProcessHTML([]byte(actions), []byte(`<p>x</p>`))
	if err != nil {
		t.Fatalf("ProcessHTML: %v", err)
	}
	if strings.Contains(string(out), "<p") {
		t.Errorf("expected <p> to be removed entirely, got %q", out)
	}
	if len(diags) == 0 {
		t.Errorf("expected a diagnostic for combining delete with hide")
	}
}

func TestProcessHTML_NestedContentsHarvest(t *testing.T) {
	// path is explicit ("" = root object) per spec.md §9's Open Question
	// resolution: an absent path means no collection at this node even
	// when values is present, and is itself diagnosed (DESIGN.md).
	actions := `[{"s":"#c","sub":[{"s":"#n","data":{"path":"","values":{"city":{"source":"Contents"}}}}]}]`
	html := `<div id="c"><span id="n">Smallville</span></div>`
	out, _, err := shadowhtml.ProcessHTML([]byte(actions), []byte(html))
	if err != nil {
		t.Fatalf("ProcessHTML: %v", err)
	}
	if !strings.Contains(string(out), `{"city":"Smallville"}`) {
		t.Errorf("expected harvested city in output, got %q", out)
	}
}

func TestProcessHTML_ArrayAppendPath(t *testing.T) {
	actions := `[{"s":"li","data":{"path":"items.","values":{"t":{"source":"Contents"}}}}]`
	html := `<ul><li>a</li><li>b</li></ul>`
	out, _, err := shadowhtml.ProcessHTML([]byte(actions), []byte(html))
	if err != nil {
		t.Fatalf("ProcessHTML: %v", err)
	}
	if !strings.Contains(string(out), `{"items":[{"t":"a"},{"t":"b"}]}`) {
		t.Errorf("expected ordered items array in output, got %q", out)
	}
}

func TestProcessHTML_InsertAfterWithSplice(t *testing.T) {
	actions := `[{"s":"input[name=x]","insert_after":["<div>ok</div>"]}]`
	html := `<form><input name=x></form>`
	out, _, err := shadowhtml.ProcessHTML([]byte(actions), []byte(html))
	if err != nil {
		t.Fatalf("ProcessHTML: %v", err)
	}
	got := string(out)
	wantOrder := strings.Index(got, `name="x"`) < strings.Index(got, `<div>ok</div>`)
	if !wantOrder || !strings.Contains(got, "<div>ok</div>") {
		t.Errorf("expected <div>ok</div> spliced immediately after the input, got %q", got)
	}
}

func TestProcessHTML_CustomFormatter(t *testing.T) {
	actions := `[{"s":"div","data":{"path":"","values":{"a":{"source":"Value"}}}}]`
	html := `<body><div value="1"></div></body>`
	formatter := func(b []byte) []byte {
		return append([]byte("<script>F("), append(b, []byte(")</script>")...)...)
	}
	out, _, err := shadowhtml.ProcessHTML([]byte(actions), []byte(html), shadowhtml.WithDataFormatter(formatter))
	if err != nil {
		t.Fatalf("ProcessHTML: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, `<script>F({"a":"1"})</script></body>`) {
		t.Errorf("got %q", got)
	}
}
