package experience

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrWriterClosed is returned when writing to a closed writer
var ErrWriterClosed = errors.New("experience writer is closed")

// maxLineSize bounds a single JSON line when reading back. A 100x100 grid
// encodes to roughly 1MB per experience.
const maxLineSize = 16 * 1024 * 1024

// WriterStats tracks what a Writer has produced
type WriterStats struct {
	Written      int64
	BytesWritten int64
	WriteErrors  int64
}

// Writer encodes experiences as one protojson object per line
type Writer struct {
	mu         sync.Mutex
	out        *bufio.Writer
	serializer *Serializer
	marshal    protojson.MarshalOptions
	logger     zerolog.Logger
	stats      WriterStats
	closed     bool
}

// NewWriter creates a JSON lines writer over w. Close flushes but does not
// close w.
func NewWriter(w io.Writer, logger zerolog.Logger) *Writer {
	return &Writer{
		out:        bufio.NewWriter(w),
		serializer: NewSerializer(),
		marshal:    protojson.MarshalOptions{UseProtoNames: true},
		logger:     logger.With().Str("component", "experience_writer").Logger(),
	}
}

// Write appends the experiences in order
func (w *Writer) Write(experiences ...*Experience) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	for _, exp := range experiences {
		st, err := w.serializer.ToStruct(exp)
		if err != nil {
			w.stats.WriteErrors++
			return fmt.Errorf("failed to convert experience %s: %w", exp.ID, err)
		}
		line, err := w.marshal.Marshal(st)
		if err != nil {
			w.stats.WriteErrors++
			return fmt.Errorf("failed to marshal experience %s: %w", exp.ID, err)
		}
		if _, err := w.out.Write(append(line, '\n')); err != nil {
			w.stats.WriteErrors++
			return fmt.Errorf("failed to write experience: %w", err)
		}
		w.stats.Written++
		w.stats.BytesWritten += int64(len(line) + 1)
	}

	w.logger.Debug().
		Int("batch_size", len(experiences)).
		Int64("bytes_written", w.stats.BytesWritten).
		Msg("Wrote experience batch")

	return nil
}

// drainBatchSize bounds how many experiences Drain holds in memory at once
const drainBatchSize = 256

// Drain writes everything a buffer currently holds, removing it from the
// buffer batch by batch. It returns how many experiences were written.
func (w *Writer) Drain(b *Buffer) (int, error) {
	written := 0
	for {
		batch := b.Take(drainBatchSize)
		if len(batch) == 0 {
			break
		}
		if err := w.Write(batch...); err != nil {
			return written, err
		}
		written += len(batch)
	}
	if written == 0 {
		return 0, nil
	}
	return written, w.Flush()
}

// Flush pushes buffered lines to the underlying writer
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Flush()
}

// Close flushes the writer. Further writes fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.out.Flush()
}

// Stats returns writer statistics
func (w *Writer) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// ReadAll decodes JSON lines produced by Writer. A non-empty gameID keeps
// only that game's experiences; limit <= 0 means no limit.
func ReadAll(r io.Reader, gameID string, limit int) ([]*Experience, error) {
	serializer := NewSerializer()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var experiences []*Experience
	for scanner.Scan() {
		if limit > 0 && len(experiences) >= limit {
			break
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var st structpb.Struct
		if err := protojson.Unmarshal(line, &st); err != nil {
			return nil, fmt.Errorf("failed to unmarshal experience: %w", err)
		}
		exp, err := serializer.FromStruct(&st)
		if err != nil {
			return nil, err
		}

		if gameID == "" || exp.GameID == gameID {
			experiences = append(experiences, exp)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading experiences: %w", err)
	}

	return experiences, nil
}
