package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxLineCapacity is the largest corpus line the Reader returns (16MB).
// Longer lines are consumed and reported with TooLong set.
const MaxLineCapacity = 16 * 1024 * 1024

// Line is one raw line of the corpus and its zero-based index.
type Line struct {
	Index int
	Data  []byte

	// TooLong marks a line over MaxLineCapacity. Its Data is dropped.
	TooLong bool
}

// Reader yields corpus lines in order. Every line, including blank and
// oversized ones, occupies one index so that a checkpoint always maps to the
// same line.
type Reader struct {
	br   *bufio.Reader
	next int
	err  error
	eof  bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Skip discards up to n lines and returns how many were discarded. Fewer than
// n lines are skipped only when the stream ends first.
func (r *Reader) Skip(n int) (int, error) {
	skipped := 0
	for skipped < n {
		if _, _, ok := r.readLine(false); !ok {
			break
		}
		skipped++
		r.next++
	}
	if r.err != nil {
		return skipped, fmt.Errorf("skipping corpus lines: %w", r.err)
	}
	return skipped, nil
}

// Next returns the next line. ok is false at the end of the stream or on a
// read error; check Err afterwards.
func (r *Reader) Next() (Line, bool) {
	data, tooLong, ok := r.readLine(true)
	if !ok {
		return Line{}, false
	}

	line := Line{Index: r.next, Data: data, TooLong: tooLong}
	r.next++
	return line, true
}

// readLine consumes one line up to and including its newline. The returned
// data excludes the line ending and is only collected when keep is set and
// the line fits in MaxLineCapacity.
func (r *Reader) readLine(keep bool) (data []byte, tooLong bool, ok bool) {
	if r.eof || r.err != nil {
		return nil, false, false
	}

	size := 0
	for {
		chunk, err := r.br.ReadSlice('\n')
		size += len(chunk)

		// Two bytes of slack for a trailing "\r\n".
		if size > MaxLineCapacity+2 {
			tooLong = true
			data = nil
		} else if keep {
			data = append(data, chunk...)
		}

		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			r.eof = true
			if size == 0 {
				return nil, false, false
			}
			break
		}
		r.err = err
		return nil, false, false
	}

	if tooLong {
		return nil, true, true
	}

	data = bytes.TrimSuffix(data, []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))
	if len(data) > MaxLineCapacity {
		return nil, true, true
	}
	if data == nil {
		data = []byte{}
	}
	return data, false, true
}

// Err returns the first non-EOF error encountered while reading.
func (r *Reader) Err() error {
	if r.err != nil {
		return fmt.Errorf("reading corpus: %w", r.err)
	}
	return nil
}

// Position is the index of the next line Next would return.
func (r *Reader) Position() int {
	return r.next
}
