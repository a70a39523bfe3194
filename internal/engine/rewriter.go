// Package engine implements the handler installer (spec component C4), the
// mutation executor (spec component C5, expressed as methods on Element /
// TextChunk), and a default Rewriter implementation adapted from the
// teacher's Cloudflare-Workers-compatible HTMLRewriter binding
// (_examples/cryguy-worker/htmlrewriter.go), with the JS bridge removed so
// handlers are plain Go closures.
//
// The Rewriter interface itself is the spec's external collaborator: the
// installer and mutation executor only ever talk to this interface, never
// to golang.org/x/net/html directly. htmlrewriter.go's defaultRewriter is
// one concrete binding, supplied so the module is runnable and testable.
package engine

// ElementHandlers groups the callbacks a selector can receive.
type ElementHandlers struct {
	// Element is called once, synchronously, when a start tag matches. It
	// may call Element.OnText to additionally watch text chunks scoped to
	// this one match instance (spec.md §4.3) — a handler registered once
	// per selector cannot itself carry per-instance state such as a
	// per-match Contents buffer, so watching is opt-in, per occurrence.
	Element func(*Element)
}

// DocumentHandlers groups document-scoped callbacks.
type DocumentHandlers struct {
	// End is called once, after the last token of the stream.
	End func(*DocumentEnd)
}

// Rewriter is the abstract streaming HTML tokenizer/rewriter the core
// binds against (spec.md §1, "the Rewriter"). It is never implemented by
// the core itself — internal/engine's default implementation exists only
// to make this module runnable without an external dependency.
type Rewriter interface {
	// On installs an element (and optionally text) handler against
	// selector. Handlers fire in the order On was called, which must be
	// the pre-order traversal of the Action tree (spec.md §5, Ordering).
	// An error return corresponds to spec.md's E3 (selector rejected).
	On(selector string, handlers ElementHandlers) error

	// OnDocument installs document-scoped handlers.
	OnDocument(handlers DocumentHandlers)

	// Write feeds the next chunk of input HTML. Implementations may
	// return output incrementally or buffer until Close; either is a
	// valid Rewriter as far as the core is concerned; the default
	// implementation buffers (see htmlrewriter.go for why).
	Write(chunk []byte) ([]byte, error)

	// Close signals end of input and returns any remaining output,
	// having already invoked the document End handler.
	Close() ([]byte, error)
}

// Element is the mutation handle passed to an Element handler. Its methods
// are the mutation-executor primitives from spec.md §4.5: SetAttribute,
// RemoveAttribute, GetAttribute, SetInnerContent, Remove, Before, After,
// Prepend, Append.
type Element struct {
	TagName string

	attrs     map[string]string
	attrOrder []string
	newTag    string
	removed   bool

	before, after, prepend, append string
	innerContent                   string
	innerSet                       bool

	// endCallbacks run arbitrary logic once the element's end tag is
	// reached (or immediately, for a void element). Any content
	// the handler wants rendered (append/after) must be queued via
	// Append/After at open time — those strings are simply emitted at
	// close regardless of when this callback runs; the callback itself
	// exists for side effects that require the fully-known element (e.g.
	// finalizing a data harvest once Contents text has been collected).
	endCallbacks []func()

	// textWatchers are this specific match instance's Text callbacks,
	// registered via OnText. They run for every text chunk found at or
	// below this element's depth, including chunks belonging to a nested
	// match, so an outer Contents harvest sees the full inner text.
	textWatchers []func(*TextChunk)
}

// OnText registers cb to be called for every text chunk found inside this
// element (including nested elements' text). Scoped to this one match
// instance, so a handler matching multiple elements of the same selector
// can accumulate a separate buffer per occurrence.
func (e *Element) OnText(cb func(*TextChunk)) {
	e.textWatchers = append(e.textWatchers, cb)
}

// GetAttribute returns the current value of name and whether it is set.
func (e *Element) GetAttribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// HasAttribute reports whether name is currently set.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.attrs[name]
	return ok
}

// SetAttribute sets (creating if missing) the attribute named name. A newly
// created attribute is appended after the element's existing attributes, so
// repeated serialization of an untouched element is stable (spec.md §8,
// chunk invariance).
func (e *Element) SetAttribute(name, value string) {
	if e.attrs == nil {
		e.attrs = map[string]string{}
	}
	if _, exists := e.attrs[name]; !exists {
		e.attrOrder = append(e.attrOrder, name)
	}
	e.attrs[name] = value
}

// RemoveAttribute removes the attribute named name, if present.
func (e *Element) RemoveAttribute(name string) {
	delete(e.attrs, name)
}

// SetTagName rewrites the element's tag name for both start and end tags.
func (e *Element) SetTagName(name string) {
	e.newTag = name
}

// Before inserts raw HTML immediately before the element's start tag.
func (e *Element) Before(html string) { e.before += html }

// After inserts raw HTML immediately after the element's end tag (or,
// for a removed/void element, at the same point the end tag would be).
func (e *Element) After(html string) { e.after += html }

// Prepend inserts raw HTML as the first child of the element.
func (e *Element) Prepend(html string) { e.prepend += html }

// Append inserts raw HTML as the last child of the element.
func (e *Element) Append(html string) { e.append += html }

// SetInnerContent replaces the element's children with raw HTML.
func (e *Element) SetInnerContent(html string) {
	e.innerContent = html
	e.innerSet = true
}

// Remove deletes the element in its entirety (outer removal). It
// overrides any other mutation queued on the same element.
func (e *Element) Remove() { e.removed = true }

// Removed reports whether Remove has been called.
func (e *Element) Removed() bool { return e.removed }

// OnEndTag registers a callback run when this element's end tag is
// reached (or immediately, for a void element), mirroring
// spec.md §4.4 point 6. Multiple handlers matching the same element may
// each register one; all run, in registration order. A callback exists
// for side effects needing the fully-known element — e.g. finalizing a
// Contents-based data harvest, which is not known until close — not for
// queuing renderable content (use Append/After for that, at any time).
func (e *Element) OnEndTag(cb func()) {
	e.endCallbacks = append(e.endCallbacks, cb)
}

// TextChunk is the mutation handle passed to a Text handler.
type TextChunk struct {
	Text           string
	LastInTextNode bool

	before, after, replacement string
	replaced, removed          bool
}

// Before inserts raw HTML immediately before this text chunk.
func (t *TextChunk) Before(html string) { t.before += html }

// After inserts raw HTML immediately after this text chunk.
func (t *TextChunk) After(html string) { t.after += html }

// Replace substitutes this text chunk's content with raw HTML.
func (t *TextChunk) Replace(html string) {
	t.replacement = html
	t.replaced = true
}

// Remove deletes this text chunk.
func (t *TextChunk) Remove() { t.removed = true }

// DocumentEnd is the mutation handle passed to a document End handler.
type DocumentEnd struct {
	append string
}

// Append inserts raw HTML at the very end of the document.
func (d *DocumentEnd) Append(html string) { d.append += html }
