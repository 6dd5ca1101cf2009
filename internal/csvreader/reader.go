// Package csvreader implements the character-level CSV state machine:
// value_start, normal, in_quotes, unquote, handle_escape, add_value,
// add_row, carriage_return, final_state and ignore_error, expressed as an
// explicit tagged state dispatched from a loop rather than as emulated
// goto labels. It drives a pluggable Driver (see driver.go) and reports
// malformed input to an ErrorHandler (see errorhandler.go).
package csvreader

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/loomgraph/loomgraph/internal/common"
)

// initialBufferSize is the starting size of the doubling read buffer.
const initialBufferSize = 64 * 1024

type state int

const (
	stateValueStart state = iota
	stateNormal
	stateInQuotes
	stateUnquote
	stateHandleEscape
	stateAddValue
	stateAddRow
	stateCarriageReturn
	stateFinal
	stateIgnoreError
)

// Reader owns a single growing byte buffer read from one file handle and
// drives the state machine over it. It is not safe for concurrent parsing
// from multiple goroutines; GetFileOffset is the one method safe to call
// concurrently with the parse loop (see §5 of the design).
type Reader struct {
	f      *os.File
	option common.CSVOption
	errh   ErrorHandler

	buffer   []byte
	position int

	// bufferSize and osFileOffset are read from a progress-reporting
	// goroutine concurrently with the parse loop; GetFileOffset's
	// correctness depends on osFileOffset never being observed smaller
	// than bufferSize; see refill's update order.
	bufferSize   atomic.Int64
	osFileOffset atomic.Int64

	blockIdx     int
	curRowIdx    int64
	cancelled    *atomic.Bool

	// escape positions recorded for the value currently being scanned,
	// relative to its start; spliced out in emitValue.
	escapePositions []int
}

// NewReader opens path and allocates an empty buffer; no bytes are read
// until the first call to a parse method.
func NewReader(path string, option common.CSVOption, errh ErrorHandler, cancelled *atomic.Bool) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	if cancelled == nil {
		cancelled = new(atomic.Bool)
	}
	return &Reader{f: f, option: option, errh: errh, cancelled: cancelled}, nil
}

// NewReaderAt opens path at byte offset startOffset, for a ParallelDriver
// worker assigned a disjoint block of the file. blockIdx tags every
// CSVError this reader emits.
func NewReaderAt(path string, startOffset int64, blockIdx int, option common.CSVOption, errh ErrorHandler, cancelled *atomic.Bool) (*Reader, error) {
	r, err := NewReader(path, option, errh, cancelled)
	if err != nil {
		return nil, err
	}
	if startOffset > 0 {
		if _, err := r.f.Seek(startOffset, io.SeekStart); err != nil {
			r.f.Close()
			return nil, fmt.Errorf("seek to block start: %w", err)
		}
		r.osFileOffset.Store(startOffset)
	}
	r.blockIdx = blockIdx
	return r, nil
}

func (r *Reader) Close() error { return r.f.Close() }

// GetFileOffset returns osFileOffset - bufferSize + position; safe to call
// from any goroutine concurrently with the parse loop.
func (r *Reader) GetFileOffset() int64 {
	return r.osFileOffset.Load() - r.bufferSize.Load() + int64(r.position)
}

// refill implements readBuffer(&start): grows the buffer to hold the
// unconsumed tail starting at *start plus a fresh doubling-sized read,
// copies the tail to the new buffer's head, and maintains the
// osFileOffset >= bufferSize invariant at every observable point via the
// documented update order (shrink bufferSize to the tail length first,
// then grow osFileOffset, then grow bufferSize to match).
func (r *Reader) refill(start *int) (bool, error) {
	remaining := r.bufferSize.Load() - int64(*start)
	readSize := int64(initialBufferSize)
	for readSize < remaining {
		readSize *= 2
	}

	newBuf := make([]byte, remaining+readSize)
	copy(newBuf, r.buffer[*start:r.bufferSize.Load()])

	n, err := r.f.Read(newBuf[remaining:])
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read csv buffer: %w", err)
	}

	r.bufferSize.Store(remaining)
	r.osFileOffset.Add(int64(n))
	r.bufferSize.Add(int64(n))

	r.buffer = newBuf[:remaining+int64(n)]
	r.position = int(remaining)
	*start = 0
	return n > 0, nil
}

// reconstructLine seeks to [startOffset, endOffset), reads the raw bytes
// for error reporting, trims a leading/trailing newline, and restores the
// reader's prior file position. Used only off the hot path.
func (r *Reader) reconstructLine(startOffset, endOffset int64) (string, error) {
	prior, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", err
	}
	defer r.f.Seek(prior, io.SeekStart)

	length := endOffset - startOffset
	if length <= 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if _, err := r.f.ReadAt(buf, startOffset); err != nil && err != io.EOF {
		return "", err
	}
	s := string(buf)
	for len(s) > 0 && (s[0] == '\n' || s[0] == '\r') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s, nil
}

func isNewLine(b byte) bool { return b == '\n' || b == '\r' }

// HandleFirstBlock advances past an optional UTF-8 BOM, then runs a
// SkipRowDriver for option.SkipNum rows, then a HeaderDriver if
// option.HasHeader is set, returning the number of rows consumed by those
// passes (never handed to the caller's real Driver). Callers driving a
// serial load call this once before the first real ParseCSV; in a
// ParallelLoad only the block-0 worker calls it, since
// option.SkipNum/HasHeader apply only to the file's very first block.
func (r *Reader) HandleFirstBlock() (int64, error) {
	var consumed int64
	if err := r.skipBOM(); err != nil {
		return 0, err
	}
	if r.option.SkipNum > 0 {
		n, err := r.ParseCSV(NewSkipRowDriver(r.option.SkipNum))
		if err != nil {
			return consumed, err
		}
		consumed += n
	}
	if r.option.HasHeader {
		n, err := r.ParseCSV(NewHeaderDriver())
		if err != nil {
			return consumed, err
		}
		consumed += n
	}
	return consumed, nil
}

func (r *Reader) skipBOM() error {
	var start int
	if r.bufferSize.Load() == 0 {
		if _, err := r.refill(&start); err != nil {
			return err
		}
	}
	if len(r.buffer) >= 3 && r.buffer[0] == 0xEF && r.buffer[1] == 0xBB && r.buffer[2] == 0xBF {
		r.position = 3
	}
	return nil
}

// curByte returns the current byte and true, or 0, false at EOF,
// transparently refilling the buffer when exhausted. start must point at
// the earliest buffer index that still needs to survive a refill - the
// beginning of whatever value is currently being scanned, or r.position
// itself when no value is in flight. refill rebases it to 0 in place, so
// callers must keep using the same *start afterward.
func (r *Reader) curByte(start *int) (byte, bool, error) {
	if r.position >= len(r.buffer) {
		more, err := r.refill(start)
		if err != nil {
			return 0, false, err
		}
		if !more {
			return 0, false, nil
		}
	}
	return r.buffer[r.position], true, nil
}

// ParseCSV runs the state machine until driver signals Done or EOF,
// returning the number of rows accepted (AddRow returned 1 for).
func (r *Reader) ParseCSV(driver Driver) (int64, error) {
	var (
		st              = stateValueStart
		start           int
		hasQuotes       bool
		column          int
		rowStartOffset  int64
		accepted        int64
	)
	r.escapePositions = r.escapePositions[:0]

	emitValue := func() []byte {
		end := r.position
		if hasQuotes {
			end--
		}
		raw := r.buffer[start:end]
		if len(r.escapePositions) == 0 {
			return raw
		}
		cleaned := make([]byte, 0, len(raw))
		skip := make(map[int]bool, len(r.escapePositions))
		for _, p := range r.escapePositions {
			skip[p] = true
		}
		for i, b := range raw {
			if skip[i] {
				continue
			}
			cleaned = append(cleaned, b)
		}
		return cleaned
	}

	for {
		if r.cancelled.Load() {
			return accepted, fmt.Errorf("csv parse cancelled")
		}

		// No value is in flight at value_start: rebase the preserved
		// region to the read cursor before it's threaded into curByte,
		// exactly as base_csv_reader.cpp resets `start` on entry to the
		// value_start label.
		if st == stateValueStart {
			start = r.position
		}

		b, ok, err := r.curByte(&start)
		if err != nil {
			return accepted, err
		}
		if !ok {
			// Reaching EOF while still inside an open quote (or mid escape
			// sequence) means no closing quote ever appeared, even though
			// quoted newlines are otherwise accepted: this is always a
			// syntax error, not a value to flush.
			if st == stateInQuotes || st == stateHandleEscape {
				rerr, ignore := r.reportSyntaxError("unterminated quoted value", rowStartOffset)
				if !ignore {
					return accepted, rerr
				}
				return accepted, nil
			}
			st = stateFinal
		}

		switch st {
		case stateValueStart:
			if driver.Done(r.curRowIdx) {
				return accepted, nil
			}
			rowStartOffset = r.GetFileOffset()
			if !ok {
				st = stateFinal
				continue
			}
			if b == r.option.QuoteChar {
				start = r.position + 1
				hasQuotes = true
				r.escapePositions = r.escapePositions[:0]
				st = stateInQuotes
			} else {
				start = r.position
				hasQuotes = false
				st = stateNormal
				continue // re-test this same byte in stateNormal without advancing
			}
			r.position++

		case stateNormal:
			switch {
			case b == r.option.Delimiter:
				st = stateAddValue
			case isNewLine(b):
				st = stateAddRow
			default:
				r.position++
				continue
			}

		case stateInQuotes:
			switch {
			case b == r.option.QuoteChar:
				st = stateUnquote
			case r.option.EscapeChar != 0 && b == r.option.EscapeChar && r.option.EscapeChar != r.option.QuoteChar:
				r.escapePositions = append(r.escapePositions, r.position-start)
				st = stateHandleEscape
			case isNewLine(b):
				if r.option.QuotedNewlinePolicy != nil && !r.option.QuotedNewlinePolicy(b) {
					rerr, ignore := r.reportSyntaxError("quoted newline rejected by policy", rowStartOffset)
					if !ignore {
						return accepted, rerr
					}
					st = stateIgnoreError
					continue
				}
				// accept: literal newline becomes part of the value
			}
			r.position++

		case stateUnquote:
			doubledQuote := r.option.DoubledQuoteEscape()
			switch {
			case b == r.option.QuoteChar && doubledQuote:
				r.escapePositions = append(r.escapePositions, r.position-start)
				st = stateInQuotes
				r.position++
			case b == r.option.Delimiter || b == r.option.ListEndChar:
				st = stateAddValue
			case isNewLine(b):
				st = stateAddRow
			default:
				rerr, ignore := r.reportSyntaxError("quote must be followed by end, delimiter or quote", rowStartOffset)
				if !ignore {
					return accepted, rerr
				}
				st = stateIgnoreError
			}

		case stateHandleEscape:
			if b == r.option.QuoteChar || b == r.option.EscapeChar {
				st = stateInQuotes
				r.position++
			} else {
				rerr, ignore := r.reportSyntaxError("bad escape sequence", rowStartOffset)
				if !ignore {
					return accepted, rerr
				}
				st = stateIgnoreError
			}

		case stateAddValue:
			value := emitValue()
			if !driver.AddValue(r.curRowIdx, column, value) {
				rerr, ignore := r.reportSyntaxError("value rejected by driver", rowStartOffset)
				if !ignore {
					return accepted, rerr
				}
				st = stateIgnoreError
				continue
			}
			column++
			r.position++
			r.escapePositions = r.escapePositions[:0]
			st = stateValueStart

		case stateAddRow:
			value := emitValue()
			if !driver.AddValue(r.curRowIdx, column, value) {
				rerr, ignore := r.reportSyntaxError("value rejected by driver", rowStartOffset)
				if !ignore {
					return accepted, rerr
				}
				st = stateIgnoreError
				continue
			}
			added := driver.AddRow(r.curRowIdx, column+1)
			r.curRowIdx += int64(added)
			accepted += int64(added)
			column = 0
			r.escapePositions = r.escapePositions[:0]
			terminator := b
			r.position++
			if terminator == '\r' {
				st = stateCarriageReturn
			} else {
				st = stateValueStart
			}
			continue

		case stateCarriageReturn:
			if ok && b == '\n' {
				r.position++
			}
			st = stateValueStart
			continue

		case stateIgnoreError:
			if !r.skipCurrentLine() {
				st = stateFinal
				continue
			}
			column = 0
			r.escapePositions = r.escapePositions[:0]
			st = stateValueStart
			continue

		case stateFinal:
			if r.position > start {
				value := emitValue()
				if driver.AddValue(r.curRowIdx, column, value) {
					column++
				}
			}
			if column > 0 {
				added := driver.AddRow(r.curRowIdx, column)
				r.curRowIdx += int64(added)
				accepted += int64(added)
			}
			return accepted, nil
		}
	}
}

// skipCurrentLine advances position past the next newline (or EOF),
// resynchronizing the parser after an error.
func (r *Reader) skipCurrentLine() bool {
	for {
		start := r.position
		b, ok, err := r.curByte(&start)
		if err != nil || !ok {
			return false
		}
		r.position++
		if isNewLine(b) {
			return true
		}
	}
}

// reportSyntaxError routes a syntax-class error through the ErrorHandler;
// returns (err, true) if the caller should resynchronize via
// skipCurrentLine, or (err, false) if it must propagate.
func (r *Reader) reportSyntaxError(message string, rowStart int64) (error, bool) {
	cerr := &common.CSVError{
		Message: message,
		Line: common.LineContext{
			StartByteOffset: rowStart,
			EndByteOffset:   r.GetFileOffset(),
			IsCompleteLine:  false,
		},
		BlockIdx:           r.blockIdx,
		NumRowsReadInBlock: r.curRowIdx,
	}
	if line, lerr := r.reconstructLine(rowStart, r.GetFileOffset()); lerr == nil {
		cerr.Message = fmt.Sprintf("%s: %q", message, line)
	}
	skip, err := r.errh.HandleError(cerr)
	if err != nil {
		return err, false
	}
	return nil, skip
}
