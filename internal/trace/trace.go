// Package trace writes and reads zstd-compressed JSONL firing traces.
//
// A trace file holds one engine.Firing per line, in commit order. Writer
// implements engine.Observer so it can be attached to an executor directly.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/forge/internal/engine"
)

// Extension is the conventional suffix for trace files.
const Extension = ".jsonl.zst"

// Writer appends firings to a compressed JSONL stream.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// Create opens path for writing, truncating any existing file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace: %w", err)
	}
	w, err := newWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.f = f
	return w, nil
}

// NewWriter wraps dst. Close flushes the encoder but does not close dst.
func NewWriter(dst io.Writer) (*Writer, error) {
	return newWriter(dst)
}

func newWriter(dst io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return &Writer{
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// OnFiring writes f as one JSON line.
func (w *Writer) OnFiring(f engine.Firing) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return fmt.Errorf("trace writer is closed")
	}
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode firing %d: %w", f.Seq, err)
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count returns the number of firings written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close flushes buffered lines and finishes the zstd frame.
// Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return nil
	}
	flushErr := w.w.Flush()
	encErr := w.enc.Close()
	var fileErr error
	if w.f != nil {
		fileErr = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.enc = nil

	for _, err := range []error{flushErr, encErr, fileErr} {
		if err != nil {
			return fmt.Errorf("close trace: %w", err)
		}
	}
	return nil
}

// Read decodes every firing from a compressed trace stream.
func Read(r io.Reader) ([]engine.Firing, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	firings := []engine.Firing{}
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var f engine.Firing
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line, err)
		}
		firings = append(firings, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return firings, nil
}

// ReadFile decodes every firing from the trace at path.
func ReadFile(path string) ([]engine.Firing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	return Read(f)
}
