package transport

import (
	"github.com/andybalholm/brotli"

	"github.com/shadowhtml/shadowhtml/internal/pump"
)

// BrotliWriter wraps a pump.ChunkWriter, compressing every chunk written
// to it through a single streaming brotli.Writer before forwarding the
// compressed bytes downstream. Grounded in the teacher's
// compressStreamState/newCompressWriter pair (compression.go), minus the
// JS-facing base64 bridge: an edge pump commonly needs to re-compress the
// rewritten body before forwarding it to a downstream sink.
type BrotliWriter struct {
	down pump.ChunkWriter
	bw   *brotli.Writer
}

// NewBrotliWriter returns a ChunkWriter that brotli-compresses everything
// written to it and forwards the compressed stream to down. Call Close
// once the caller's pump.Run has returned, to flush the trailing frame.
func NewBrotliWriter(down pump.ChunkWriter) *BrotliWriter {
	w := &BrotliWriter{down: down}
	w.bw = brotli.NewWriter(flushFunc(w.forward))
	return w
}

// forward implements io.Writer by handing bytes straight to the wrapped
// ChunkWriter, translating a write error into brotli's expected signature.
func (w *BrotliWriter) forward(p []byte) (int, error) {
	if err := w.down.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Write compresses chunk and forwards the resulting bytes.
func (w *BrotliWriter) Write(chunk []byte) error {
	_, err := w.bw.Write(chunk)
	return err
}

// Close flushes and closes the underlying brotli stream, emitting any
// buffered compressed bytes to the downstream writer.
func (w *BrotliWriter) Close() error {
	return w.bw.Close()
}

// flushFunc adapts a plain func([]byte) (int, error) into an io.Writer.
type flushFunc func([]byte) (int, error)

func (f flushFunc) Write(p []byte) (int, error) { return f(p) }
