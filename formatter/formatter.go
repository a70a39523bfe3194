// Package formatter supplies small, ready-made pump.DataFormatter
// implementations for wrapping the serialized HarvestedDocument before it
// is spliced into the output stream (spec.md §6).
package formatter

// ScriptTag wraps data in a <script>...</script> element, the form spec.md
// §8's custom-formatter scenario uses.
func ScriptTag(data []byte) []byte {
	out := make([]byte, 0, len(data)+17)
	out = append(out, "<script>"...)
	out = append(out, data...)
	out = append(out, "</script>"...)
	return out
}
