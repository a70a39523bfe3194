// Package harvest implements the hierarchical HarvestedDocument and the
// write primitives that accumulate per-element data into it (spec
// component C3).
package harvest

import (
	"strings"

	"github.com/shadowhtml/shadowhtml/internal/diag"
)

// Document is the tree-shaped mutable output document: interior nodes are
// key→child maps, leaves are JSON scalars, arrays, or objects. It is
// created empty, written during streaming, serialized exactly once, and
// discarded (spec.md §3, Lifecycle).
type Document struct {
	root map[string]any
	sink *diag.Sink
}

// New returns an empty Document whose writes diagnose through sink.
func New(sink *diag.Sink) *Document {
	return &Document{root: map[string]any{}, sink: sink}
}

// Root returns the underlying map, ready for JSON serialization. Callers
// must not mutate it concurrently with streaming.
func (d *Document) Root() map[string]any {
	return d.root
}

// splitPath breaks a dotted path into segments. A trailing dot is not
// treated specially here: callers strip the array-append marker before
// calling, and any empty segment left in the result is reported by the
// caller.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// MergeValue traverses/creates the object at path and sets key to value. If
// the final segment already resolved to a non-object, or key is already
// set, the write is a no-op and a diagnostic is recorded — the first write
// to a leaf always wins (spec.md §3, HarvestedDocument invariants).
func (d *Document) MergeValue(path string, key string, value any) {
	obj, ok := d.resolveObject(path)
	if !ok {
		return
	}
	if _, exists := obj[key]; exists {
		d.sink.Add(diag.KindDataPathConflict, "duplicate write to %q at path %q; keeping first value", key, joinPath(path))
		return
	}
	obj[key] = value
}

// AppendObject traverses/creates an array at path (path must end in a
// trailing dot per spec.md §3) and pushes obj onto it.
func (d *Document) AppendObject(pathWithTrailingDot string, obj map[string]any) {
	if !strings.HasSuffix(pathWithTrailingDot, ".") {
		d.sink.Add(diag.KindDataPathConflict, "AppendObject called with non-array path %q", pathWithTrailingDot)
		return
	}
	base := strings.TrimSuffix(pathWithTrailingDot, ".")

	parent, leaf, ok := d.resolveParent(base)
	if !ok {
		return
	}

	existing, present := parent[leaf]
	if !present {
		arr := []any{obj}
		parent[leaf] = arr
		return
	}
	arr, isArr := existing.([]any)
	if !isArr {
		d.sink.Add(diag.KindDataPathConflict, "path %q already resolved to a non-array value, cannot append", joinPath(base))
		return
	}
	parent[leaf] = append(arr, obj)
}

// resolveObject walks/creates the object chain named by path (an empty
// path means "the root object", per spec.md §9) and returns it, or ok=false
// if a path segment already resolved to a scalar.
func (d *Document) resolveObject(path string) (map[string]any, bool) {
	segs := splitPath(path)
	cur := d.root
	for i, seg := range segs {
		if seg == "" {
			d.sink.Add(diag.KindDataPathConflict, "empty path segment in %q", joinPath(path))
			return nil, false
		}
		existing, present := cur[seg]
		if !present {
			child := map[string]any{}
			cur[seg] = child
			cur = child
			continue
		}
		child, isObj := existing.(map[string]any)
		if !isObj {
			d.sink.Add(diag.KindDataPathConflict, "path segment %q in %q already resolved to a scalar", seg, joinPath(path))
			return nil, false
		}
		cur = child
		_ = i
	}
	return cur, true
}

// resolveParent walks/creates the object chain for everything but the last
// path segment and returns (parentObject, lastSegment, ok). An empty path
// is invalid for this call (there is no parent of the root).
func (d *Document) resolveParent(path string) (map[string]any, string, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		d.sink.Add(diag.KindDataPathConflict, "array path must not be empty")
		return nil, "", false
	}
	parentPath := strings.Join(segs[:len(segs)-1], ".")
	parent, ok := d.resolveObject(parentPath)
	if !ok {
		return nil, "", false
	}
	return parent, segs[len(segs)-1], true
}

func joinPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
