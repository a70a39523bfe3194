// Package shadowhtml ties the action-tree parser, selector compiler,
// handler installer, mutation executor, data accumulator, and stream pump
// into the single entry point an embedding edge-compute pipeline calls
// per request (spec.md §1, the binding layer). Every collaborator the core
// needs — the chunk reader, the chunk writer, the Rewriter, the
// DataFormatter — is consumed through an interface; this package only
// wires a default Rewriter (internal/engine's golang.org/x/net/html
// binding) unless WithRewriter overrides it.
package shadowhtml

import (
	"github.com/shadowhtml/shadowhtml/internal/action"
	"github.com/shadowhtml/shadowhtml/internal/diag"
	"github.com/shadowhtml/shadowhtml/internal/engine"
	"github.com/shadowhtml/shadowhtml/internal/harvest"
	"github.com/shadowhtml/shadowhtml/internal/pump"
	"github.com/shadowhtml/shadowhtml/transport"
)

// options holds the configuration Option functions mutate, in the same
// functional-options shape as MacroPower-x's magicschema.Generator
// (Option func(*Generator)).
type options struct {
	formatter   pump.DataFormatter
	newRewriter func() engine.Rewriter
}

// Option configures a Process/ProcessHTML call.
type Option func(*options)

// WithDataFormatter overrides the default identity DataFormatter, which
// splices the HarvestedDocument's raw JSON verbatim.
func WithDataFormatter(f pump.DataFormatter) Option {
	return func(o *options) { o.formatter = f }
}

// WithRewriter overrides the default golang.org/x/net/html-backed
// Rewriter with factory, called once per Process/ProcessHTML call.
func WithRewriter(factory func() engine.Rewriter) Option {
	return func(o *options) { o.newRewriter = factory }
}

func defaultOptions() *options {
	return &options{
		formatter:   pump.Identity,
		newRewriter: engine.NewDefaultRewriter,
	}
}

// Process parses actionsJSON into an Action tree, installs its handlers on
// a fresh Rewriter, and drives r's chunks through it to w, splicing the
// harvested document immediately before the first </body> (or appending it
// to the tail of the stream if none appears). It returns every diagnostic
// collected along the way, in the order they were recorded; no diagnostic
// is itself a returned error — only an upstream/downstream I/O failure or
// a Rewriter write/close failure is. A selector the Rewriter rejects at
// install time is reported as a diagnostic, not as an error.
func Process(actionsJSON []byte, r pump.ChunkReader, w pump.ChunkWriter, opts ...Option) ([]string, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	sink := diag.New()
	tree := action.Parse(actionsJSON, sink)
	doc := harvest.New(sink)
	rw := cfg.newRewriter()

	if err := engine.Install(tree, rw, doc, sink); err != nil {
		return sink.Strings(), err
	}

	if err := pump.New(rw, doc, sink, cfg.formatter).Run(r, w); err != nil {
		return sink.Strings(), err
	}
	return sink.Strings(), nil
}

// ProcessHTML is a convenience wrapper over Process for a single,
// already-fully-buffered HTML document: the common case for tests, the
// CLI's "run" subcommand, and any caller not itself streaming chunks.
func ProcessHTML(actionsJSON, html []byte, opts ...Option) ([]byte, []string, error) {
	r := transport.NewSliceReader([][]byte{html})
	w := &transport.BufferWriter{}
	diags, err := Process(actionsJSON, r, w, opts...)
	return w.Bytes(), diags, err
}
