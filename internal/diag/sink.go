// Package diag implements the append-only diagnostic sink shared by every
// component of the pipeline (spec component C7).
package diag

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies a diagnostic by the error category it corresponds to.
type Kind string

const (
	// KindMalformedJSON covers unparseable action JSON (E1).
	KindMalformedJSON Kind = "malformed_json"
	// KindSemanticViolation covers a missing required field, illegal
	// combination, or unknown enum value in the action tree (E2).
	KindSemanticViolation Kind = "semantic_violation"
	// KindSelectorRejected covers a selector the Rewriter refused to
	// install at handler-install time (E3).
	KindSelectorRejected Kind = "selector_rejected"
	// KindDataPathConflict covers a harvested-document path collision:
	// scalar-vs-object, or a duplicate leaf write (E4).
	KindDataPathConflict Kind = "data_path_conflict"
	// KindUpstreamRead covers a chunk-reader failure (E5).
	KindUpstreamRead Kind = "upstream_read"
	// KindDownstreamWrite covers a chunk-writer failure (E6).
	KindDownstreamWrite Kind = "downstream_write"
	// KindRewriterParse covers a Rewriter-reported parse failure (E7).
	KindRewriterParse Kind = "rewriter_parse"
)

// maxEntries bounds the sink so a pathological document (or a handler bug
// that diagnoses every element) can't grow it unbounded for the lifetime of
// one stream.
const maxEntries = 1000

// maxMessageSize truncates any single diagnostic message, mirroring the
// per-request log cap the teacher runtime uses for the same reason.
const maxMessageSize = 4096

// Entry is a single diagnostic.
type Entry struct {
	Kind    Kind
	Message string
}

// Sink is an append-only diagnostic collector. Every component of the
// pipeline is loaned a pointer to the same Sink for the lifetime of one
// process_html call; nothing in this package is fatal to streaming.
type Sink struct {
	id      string
	entries []Entry
}

// New returns an empty Sink, stamped with a fresh request-scoped
// identifier. An edge pump typically runs many concurrent Process calls
// against one shared downstream logger; ID lets a caller correlate the
// diagnostics returned by one call without threading its own request ID
// through every component.
func New() *Sink {
	return &Sink{id: uuid.NewString()}
}

// ID returns this Sink's request-scoped identifier.
func (s *Sink) ID() string {
	return s.id
}

// Add appends a diagnostic. Once maxEntries have accumulated, further
// diagnostics are silently dropped rather than grown without bound.
func (s *Sink) Add(kind Kind, format string, args ...any) {
	if len(s.entries) >= maxEntries {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxMessageSize {
		const marker = "...(truncated)"
		msg = msg[:maxMessageSize-len(marker)] + marker
	}
	s.entries = append(s.entries, Entry{Kind: kind, Message: msg})
}

// Entries returns the diagnostics recorded so far, in the order they were
// added. The returned slice is owned by the caller.
func (s *Sink) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Strings renders each diagnostic as "kind: message", the form surfaced to
// callers after process_html returns (spec.md §6, Error sink).
func (s *Sink) Strings() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = string(e.Kind) + ": " + e.Message
	}
	return out
}

// Len reports how many diagnostics have been recorded.
func (s *Sink) Len() int {
	return len(s.entries)
}
