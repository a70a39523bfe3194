package engine

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	gohtml "golang.org/x/net/html"

	"github.com/shadowhtml/shadowhtml/internal/selector"
)

// maxHandlers caps the number of selector handlers a single Rewriter will
// install, protecting the token loop from pathological handler counts
// (adapted from the teacher's maxHTMLRewriterHandlers CPU-DoS guard).
const maxHandlers = 512

// defaultRewriter is the module's reference Rewriter implementation. It
// reimplements the teacher's rewriteHTML token loop
// (_examples/cryguy-worker/htmlrewriter.go) against golang.org/x/net/html,
// with the JS bridge removed: handlers are plain Go closures called
// directly, and any number of overlapping selectors may match and fire
// (in registration order) for the same element, rather than the teacher's
// first-match-wins shortcut.
//
// Write buffers every chunk; the token loop — and therefore all handler
// invocation — runs once, in Close. A truly incremental, tag-boundary-safe
// tokenizer would need to drive golang.org/x/net/html.Tokenizer from a
// goroutine blocked on an io.Pipe; the teacher's own HTMLRewriter binding
// makes the same trade-off (it operates on a fully-materialized response
// body, never on a partial chunk), so this keeps parity with the
// engineering the corpus actually ships rather than adding concurrency the
// single-threaded cooperative model (spec.md §5) would then need to carry.
type defaultRewriter struct {
	specs       []boundSpec
	docHandlers DocumentHandlers
	buf         bytes.Buffer
}

type boundSpec struct {
	compiled *selector.Compound
	handlers ElementHandlers
}

// NewDefaultRewriter returns a Rewriter backed by golang.org/x/net/html.
func NewDefaultRewriter() Rewriter {
	return &defaultRewriter{}
}

func (r *defaultRewriter) On(sel string, handlers ElementHandlers) error {
	if len(r.specs) >= maxHandlers {
		return fmt.Errorf("selector %q: handler limit (%d) reached", sel, maxHandlers)
	}
	r.specs = append(r.specs, boundSpec{compiled: selector.Parse(sel), handlers: handlers})
	return nil
}

func (r *defaultRewriter) OnDocument(handlers DocumentHandlers) {
	r.docHandlers = handlers
}

func (r *defaultRewriter) Write(chunk []byte) ([]byte, error) {
	r.buf.Write(chunk)
	return nil, nil
}

func (r *defaultRewriter) Close() ([]byte, error) {
	out, err := r.rewrite(r.buf.Bytes())
	if err != nil {
		return nil, err
	}
	if r.docHandlers.End != nil {
		de := &DocumentEnd{}
		r.docHandlers.End(de)
		out = append(out, []byte(de.append)...)
	}
	return out, nil
}

// matchedElement tracks bookkeeping for one matched token while its
// children stream past.
type matchedElement struct {
	depth int

	shared *Element

	// textWatchers are every matching spec's Text handler for this token,
	// called for every text token at depth >= this element's depth
	// (including nested elements' text), so an outer Contents harvest
	// sees the full inner text (spec.md §4.3).
	textWatchers []func(*TextChunk)
}

func (r *defaultRewriter) rewrite(src []byte) ([]byte, error) {
	tokenizer := gohtml.NewTokenizer(bytes.NewReader(src))
	var out strings.Builder

	var matchStack []*matchedElement
	depth := 0

	var elementStack []selector.ElementInfo
	siblingMap := make(map[int][]selector.ElementInfo)

	needsContext := false
	for _, s := range r.specs {
		if !s.compiled.IsSimple() {
			needsContext = true
			break
		}
	}

	matchesSpec := func(s boundSpec, tagName string, attrs map[string]string) bool {
		if s.compiled.IsSimple() {
			return s.compiled.Subject().Matches(tagName, attrs)
		}
		var siblings []selector.ElementInfo
		if needsContext {
			siblings = siblingMap[depth]
		}
		return s.compiled.MatchesWithContext(tagName, attrs, elementStack, siblings)
	}

	shouldSkipContent := func(d int) bool {
		for _, me := range matchStack {
			if me.shared.innerSet || me.shared.removed {
				if d >= me.depth {
					return true
				}
			}
		}
		return false
	}

	for {
		tt := tokenizer.Next()
		if tt == gohtml.ErrorToken {
			break
		}
		token := tokenizer.Token()

		switch tt {
		case gohtml.StartTagToken, gohtml.SelfClosingTagToken:
			isVoid := tt == gohtml.SelfClosingTagToken || voidElement(token.Data)
			depth++

			if shouldSkipContent(depth - 1) {
				if isVoid {
					depth--
				}
				continue
			}

			attrs, attrOrder := attrMap(token.Attr)

			var matching []boundSpec
			for _, s := range r.specs {
				if matchesSpec(s, token.Data, attrs) {
					matching = append(matching, s)
				}
			}

			if len(matching) == 0 {
				out.WriteString(renderStartTag(token.Data, attrs, attrOrder, isVoid))
				if isVoid {
					depth--
				}
				advanceContext(needsContext, &elementStack, siblingMap, token.Data, attrs, depth, isVoid)
				continue
			}

			shared := &Element{TagName: token.Data, attrs: attrs, attrOrder: attrOrder}
			for _, s := range matching {
				if s.handlers.Element != nil {
					s.handlers.Element(shared)
				}
			}

			out.WriteString(shared.before)
			openDepth := depth // depth at which this element sits, before any void un-increment

			if shared.removed {
				if !isVoid {
					matchStack = append(matchStack, &matchedElement{depth: openDepth, shared: shared, textWatchers: shared.textWatchers})
				} else {
					runEndCallbacks(shared)
					out.WriteString(shared.after)
					depth--
				}
				advanceContext(needsContext, &elementStack, siblingMap, token.Data, attrs, openDepth, isVoid)
				continue
			}

			tagName := token.Data
			if shared.newTag != "" {
				tagName = shared.newTag
			}
			out.WriteString(renderStartTag(tagName, shared.attrs, shared.attrOrder, isVoid))

			if isVoid {
				runEndCallbacks(shared)
				out.WriteString(shared.append)
				out.WriteString(shared.after)
				depth--
				advanceContext(needsContext, &elementStack, siblingMap, token.Data, attrs, openDepth, isVoid)
				continue
			}

			out.WriteString(shared.prepend)
			matchStack = append(matchStack, &matchedElement{depth: openDepth, shared: shared, textWatchers: shared.textWatchers})
			advanceContext(needsContext, &elementStack, siblingMap, token.Data, attrs, openDepth, isVoid)

		case gohtml.EndTagToken:
			var me *matchedElement
			for i := len(matchStack) - 1; i >= 0; i-- {
				if matchStack[i].depth == depth {
					me = matchStack[i]
					matchStack = append(matchStack[:i], matchStack[i+1:]...)
					break
				}
			}

			if needsContext && len(elementStack) > 0 && elementStack[len(elementStack)-1].Depth == depth {
				elementStack = elementStack[:len(elementStack)-1]
				delete(siblingMap, depth+1)
			}

			depth--

			if me == nil {
				if shouldSkipContent(depth + 1) {
					continue
				}
				out.WriteString(token.String())
				continue
			}

			runEndCallbacks(me.shared)
			skipEndTag := me.shared.removed
			afterContent := me.shared.after

			if skipEndTag || shouldSkipContent(depth+1) {
				out.WriteString(afterContent)
				continue
			}

			if me.shared.innerSet {
				out.WriteString(me.shared.innerContent)
			}
			out.WriteString(me.shared.append)

			tagName := token.Data
			if me.shared.newTag != "" {
				tagName = me.shared.newTag
			}
			out.WriteString("</" + tagName + ">")
			out.WriteString(afterContent)

		case gohtml.TextToken:
			if shouldSkipContent(depth) {
				continue
			}
			text := token.Data
			var mutated *TextChunk
			for _, me := range matchStack {
				if depth < me.depth {
					continue
				}
				for _, watcher := range me.textWatchers {
					tc := &TextChunk{Text: text}
					watcher(tc)
					if mutated == nil && (tc.replaced || tc.removed || tc.before != "" || tc.after != "") {
						mutated = tc
					}
				}
			}
			if mutated == nil {
				out.WriteString(text)
				continue
			}
			out.WriteString(mutated.before)
			if mutated.removed {
				// text dropped
			} else if mutated.replaced {
				out.WriteString(mutated.replacement)
			} else {
				out.WriteString(text)
			}
			out.WriteString(mutated.after)

		case gohtml.DoctypeToken:
			out.WriteString(token.String())

		case gohtml.CommentToken:
			if shouldSkipContent(depth) {
				continue
			}
			out.WriteString(token.String())

		default:
			out.WriteString(token.String())
		}
	}

	return []byte(out.String()), nil
}

func runEndCallbacks(e *Element) {
	for _, cb := range e.endCallbacks {
		cb()
	}
}

func advanceContext(needsContext bool, elementStack *[]selector.ElementInfo, siblingMap map[int][]selector.ElementInfo, tag string, attrs map[string]string, depth int, isVoid bool) {
	if !needsContext {
		return
	}
	info := selector.ElementInfo{TagName: tag, Attrs: attrs, Depth: depth}
	siblingMap[depth] = append(siblingMap[depth], info)
	if !isVoid {
		*elementStack = append(*elementStack, info)
		delete(siblingMap, depth+1)
	}
}

func attrMap(attrs []gohtml.Attribute) (map[string]string, []string) {
	m := make(map[string]string, len(attrs))
	order := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if _, exists := m[a.Key]; !exists {
			order = append(order, a.Key)
		}
		m[a.Key] = a.Val
	}
	return m, order
}

// renderStartTag writes attrs in order, skipping any name order names that
// were since removed. A name present in attrs but missing from order (not
// possible via the Element API, but defensive against a future caller that
// mutates attrs directly) is appended at the end so no attribute is ever
// silently dropped.
func renderStartTag(tag string, attrs map[string]string, order []string, isVoid bool) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(tag)
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		v, ok := attrs[k]
		if !ok {
			continue
		}
		seen[k] = true
		writeAttr(&b, k, v)
	}
	for k, v := range attrs {
		if seen[k] {
			continue
		}
		writeAttr(&b, k, v)
	}
	if isVoid {
		b.WriteString(" />")
	} else {
		b.WriteByte('>')
	}
	return b.String()
}

func writeAttr(b *strings.Builder, k, v string) {
	b.WriteByte(' ')
	b.WriteString(k)
	b.WriteString(`="`)
	b.WriteString(html.EscapeString(v))
	b.WriteByte('"')
}

// voidElement returns true for HTML void elements that have no end tag.
func voidElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}
