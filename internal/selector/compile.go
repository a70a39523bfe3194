// Package selector implements the selector compiler (spec component C2) and
// the compound-selector matching engine used by the default Rewriter. The
// matcher is adapted from the teacher's CSS-selector support for the
// Cloudflare-Workers-compatible HTMLRewriter binding.
package selector

// Compile folds a child's raw selector into an absolute selector given its
// parent's already-compiled absolute selector. Top-level nodes have an empty
// parent, so the compiled selector equals the raw selector unchanged.
//
// Composition is deliberately opaque string concatenation (a single-space
// descendant combinator) — selector semantics, specificity, and matching
// belong entirely to the Rewriter. A parent selector ending in a combinator
// (e.g. "a >") composes unusually; that is the documented convention, not a
// bug.
func Compile(parentAbsolute, raw string) string {
	if parentAbsolute == "" {
		return raw
	}
	return parentAbsolute + " " + raw
}
