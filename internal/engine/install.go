package engine

import (
	"strings"

	"github.com/shadowhtml/shadowhtml/internal/action"
	"github.com/shadowhtml/shadowhtml/internal/diag"
	"github.com/shadowhtml/shadowhtml/internal/harvest"
	"github.com/shadowhtml/shadowhtml/internal/selector"
)

// Install walks tree in pre-order, compiling each node's selector against
// its parent's already-compiled selector and binding one handler per node
// on rw, generalizing the teacher's callElementHandler/callTextHandler
// JS-bridge functions into plain Go closures (spec.md §4.4). Handlers are
// installed in the same pre-order the tree is walked, so overlapping
// selectors fire in registration order (spec.md §5).
func Install(tree []*action.Action, rw Rewriter, doc *harvest.Document, sink *diag.Sink) error {
	return install(tree, "", rw, doc, sink)
}

func install(nodes []*action.Action, parentCompiled string, rw Rewriter, doc *harvest.Document, sink *diag.Sink) error {
	for _, node := range nodes {
		node.Compiled = selector.Compile(parentCompiled, node.Selector)
		if err := rw.On(node.Compiled, ElementHandlers{Element: nodeHandler(node, doc)}); err != nil {
			sink.Add(diag.KindSelectorRejected, "selector %q: %v", node.Compiled, err)
			continue
		}
		if len(node.Sub) > 0 {
			if err := install(node.Sub, node.Compiled, rw, doc, sink); err != nil {
				return err
			}
		}
	}
	return nil
}

// nodeHandler returns the Element callback for one Action node. Every
// invocation is one match instance: attribute-sourced values are read
// immediately, Contents-sourced values are accumulated via a per-instance
// text watcher, and both the harvest write and any match_replace content
// edit are finalized in an end-tag callback, once the element's full inner
// text is known.
func nodeHandler(node *action.Action, doc *harvest.Document) func(*Element) {
	needsContentBuffer := node.Data != nil && node.Data.PathSet && dataUsesContents(node.Data) ||
		(node.Edit != nil && node.Edit.Content != nil && node.Edit.Content.Op == action.OpMatchReplace)

	return func(el *Element) {
		if node.Delete {
			el.Remove()
			return
		}

		if node.Hide {
			applyHide(el)
		}
		if node.Edit != nil {
			applyAttrEdits(el, node.Edit.Attrs)
			if node.Edit.Content != nil && node.Edit.Content.Op != action.OpMatchReplace {
				applyContentEditNow(el, *node.Edit.Content)
			}
		}
		for _, frag := range node.InsertBefore {
			el.Before(frag)
		}
		for _, frag := range node.Prepend {
			el.Prepend(frag)
		}
		for _, frag := range node.Append {
			el.Append(frag)
		}
		for _, frag := range node.InsertAfter {
			el.After(frag)
		}

		attrValues := map[string]string{}
		if node.Data != nil && node.Data.PathSet {
			for key, vs := range node.Data.Values {
				if vs.Source == action.SourceAttribute {
					if v, ok := el.GetAttribute(vs.Name); ok {
						attrValues[key] = v
					}
				}
			}
		}

		var contentBuf *strings.Builder
		if needsContentBuffer {
			contentBuf = &strings.Builder{}
			el.OnText(func(tc *TextChunk) {
				contentBuf.WriteString(tc.Text)
			})
		}

		el.OnEndTag(func() {
			if node.Edit != nil && node.Edit.Content != nil && node.Edit.Content.Op == action.OpMatchReplace && contentBuf != nil {
				op := *node.Edit.Content
				el.SetInnerContent(strings.ReplaceAll(contentBuf.String(), op.Match, op.Val))
			}

			if node.Data == nil || !node.Data.PathSet {
				return
			}
			result := make(map[string]any, len(node.Data.Values))
			for k, v := range attrValues {
				result[k] = v
			}
			if contentBuf != nil {
				for key, vs := range node.Data.Values {
					if vs.Source == action.SourceContents {
						result[key] = contentBuf.String()
					}
				}
			}
			if len(result) == 0 {
				return
			}
			if strings.HasSuffix(node.Data.Path, ".") {
				doc.AppendObject(node.Data.Path, result)
			} else {
				for k, v := range result {
					doc.MergeValue(node.Data.Path, k, v)
				}
			}
		})
	}
}

func dataUsesContents(d *action.DataSpec) bool {
	for _, vs := range d.Values {
		if vs.Source == action.SourceContents {
			return true
		}
	}
	return false
}

// applyHide sets style="display:none", preserving and appending to any
// existing style declaration (spec.md §4.5, Hide).
func applyHide(el *Element) {
	if style, ok := el.GetAttribute("style"); ok && style != "" {
		sep := "; "
		if strings.HasSuffix(strings.TrimSpace(style), ";") {
			sep = " "
		}
		el.SetAttribute("style", style+sep+"display:none")
		return
	}
	el.SetAttribute("style", "display:none")
}

// applyAttrEdits applies every attrs edit op in the JSON object's original
// insertion order (spec.md §4.4 point 3); the parser has already pruned
// invalid ops, so every op here is well-formed.
func applyAttrEdits(el *Element, attrs []action.AttrEdit) {
	for _, ae := range attrs {
		switch ae.Op {
		case action.OpUpsert:
			el.SetAttribute(ae.Name, ae.Val)
		case action.OpDelete:
			el.RemoveAttribute(ae.Name)
		case action.OpMatchReplace:
			if v, ok := el.GetAttribute(ae.Name); ok {
				el.SetAttribute(ae.Name, strings.ReplaceAll(v, ae.Match, ae.Val))
			}
		}
	}
}

// applyContentEditNow applies an upsert or delete content edit at open
// time, when the replacement does not depend on the element's inner text.
// match_replace is handled separately, deferred to the end-tag callback.
func applyContentEditNow(el *Element, op action.EditOp) {
	switch op.Op {
	case action.OpUpsert:
		el.SetInnerContent(op.Val)
	case action.OpDelete:
		el.SetInnerContent("")
	}
}
