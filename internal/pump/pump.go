// Package pump implements the chunked stream pump (spec component C6): it
// drives a Rewriter across an arbitrary chunk iterator, forwards emitted
// output to a sink, and guarantees the harvested document is spliced
// exactly once, immediately before the first </body>, or appended to the
// tail of the stream if no </body> is ever seen.
package pump

import (
	"encoding/json"
	"io"

	"github.com/shadowhtml/shadowhtml/internal/diag"
	"github.com/shadowhtml/shadowhtml/internal/engine"
	"github.com/shadowhtml/shadowhtml/internal/harvest"
)

// ChunkReader yields the next chunk of upstream bytes. Next returns io.EOF
// (with a nil chunk) once the stream is exhausted; any other error aborts
// the pump (spec.md §4.6, E5).
type ChunkReader interface {
	Next() ([]byte, error)
}

// ChunkWriter accepts one chunk of downstream bytes. A non-nil error
// aborts the pump (spec.md §4.6, E6).
type ChunkWriter interface {
	Write([]byte) error
}

// DataFormatter transforms the serialized HarvestedDocument before it is
// spliced into the output (spec.md §6). Identity is the default.
type DataFormatter func([]byte) []byte

// Identity returns b unchanged.
func Identity(b []byte) []byte { return b }

// Pump owns the Rewriter, the HarvestedDocument, and the error sink for
// the lifetime of one stream (spec.md §5, Shared resources). Not safe for
// concurrent use by more than one goroutine.
type Pump struct {
	rw        engine.Rewriter
	doc       *harvest.Document
	sink      *diag.Sink
	formatter DataFormatter

	spliced bool
}

// New installs the low-priority body-close splice handler and returns a
// Pump ready to drive a stream. Call exactly once per stream; install any
// Action-tree handlers on rw before calling Run, since handler
// registration order determines splice-fragment and mutation ordering
// (spec.md §5).
func New(rw engine.Rewriter, doc *harvest.Document, sink *diag.Sink, formatter DataFormatter) *Pump {
	if formatter == nil {
		formatter = Identity
	}
	p := &Pump{rw: rw, doc: doc, sink: sink, formatter: formatter}
	p.installBodySplice()
	return p
}

// installBodySplice registers the additional low-priority "body" handler
// and a document-end fallback (spec.md §4.6). Registered after any
// Action-tree handlers that were already installed on rw, so it always
// runs last against a "body" match, and its fallback only fires if body's
// close event never ran.
func (p *Pump) installBodySplice() {
	p.rw.On("body", engine.ElementHandlers{
		Element: func(el *engine.Element) {
			el.OnEndTag(func() {
				if p.spliced {
					return
				}
				p.spliced = true
				el.Append(string(p.formatter(p.renderDoc())))
			})
		},
	})
	p.rw.OnDocument(engine.DocumentHandlers{
		End: func(de *engine.DocumentEnd) {
			if p.spliced {
				return
			}
			p.spliced = true
			de.Append(string(p.formatter(p.renderDoc())))
		},
	})
}

func (p *Pump) renderDoc() []byte {
	b, err := json.Marshal(p.doc.Root())
	if err != nil {
		p.sink.Add(diag.KindDownstreamWrite, "harvested document serialization failed: %v", err)
		return []byte("{}")
	}
	return b
}

// Run drives r through the installed Rewriter and writes every emitted
// chunk to w before requesting the next input chunk (spec.md §4.6).
//
// On an upstream read failure, any output the Rewriter has already
// buffered is flushed to w before Run returns the read error; no rollback
// of already-emitted output is attempted, and any incomplete match-instance
// buffers are discarded without emission (spec.md §5, Cancellation). On a
// downstream write failure, Run stops reading upstream immediately.
func (p *Pump) Run(r ChunkReader, w ChunkWriter) error {
	for {
		chunk, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			p.sink.Add(diag.KindUpstreamRead, "upstream read failed: %v", err)
			if out, cerr := p.rw.Close(); cerr == nil && len(out) > 0 {
				if werr := w.Write(out); werr != nil {
					p.sink.Add(diag.KindDownstreamWrite, "downstream write failed while flushing after upstream error: %v", werr)
				}
			}
			return err
		}

		out, werr := p.rw.Write(chunk)
		if werr != nil {
			p.sink.Add(diag.KindRewriterParse, "rewriter write failed: %v", werr)
			return werr
		}
		if len(out) > 0 {
			if err := w.Write(out); err != nil {
				p.sink.Add(diag.KindDownstreamWrite, "downstream write failed: %v", err)
				return err
			}
		}
	}

	out, err := p.rw.Close()
	if err != nil {
		p.sink.Add(diag.KindRewriterParse, "rewriter close failed: %v", err)
		return err
	}
	if len(out) > 0 {
		if err := w.Write(out); err != nil {
			p.sink.Add(diag.KindDownstreamWrite, "downstream write failed: %v", err)
			return err
		}
	}
	return nil
}
