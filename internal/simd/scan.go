// Package simd provides byte-class scanning helpers for finding
// delimiter/quote/newline bytes quickly; the parallel block splitter uses
// CountByte, and the CSV state machine scans byte by byte without this
// package. It is pure Go (SIMD-within-a-register over uint64 words)
// rather than true vector instructions: no backing assembly for actual
// AVX2/SSE4.2 kernels exists to link against, so this takes the package's
// own documented "pure Go fallback" path and makes it the only path,
// tuned by runtime CPU feature detection rather than by dispatching to
// hand-written assembly.
package simd

import (
	"bytes"

	"golang.org/x/sys/cpu"
)

// wideStride reports the scan stride (in bytes) to use for this machine.
// It never changes scan semantics, only how many bytes get SWAR-processed
// per iteration - machines that report wider cache lines and AVX2 get a
// larger stride purely as a tuning knob.
func wideStride() int {
	if cpu.X86.HasAVX2 {
		return 64
	}
	if cpu.X86.HasSSE42 {
		return 32
	}
	return 16
}

const (
	loMask uint64 = 0x0101010101010101
	hiMask uint64 = 0x8080808080808080
)

// hasZeroByte reports whether any byte within w is the zero byte, using
// the classic SWAR "subtract-and-mask" trick: well-known and allocation
// free, unlike a byte-at-a-time loop.
func hasZeroByte(w uint64) bool {
	return (w-loMask)&^w&hiMask != 0
}

// broadcast replicates b into every byte lane of a uint64.
func broadcast(b byte) uint64 {
	return loMask * uint64(b)
}

// IndexByte finds the first occurrence of b in buf at or after start,
// scanning stride bytes at a time (wideStride words of 8, unrolled) via
// SWAR before falling back to a byte-at-a-time tail scan. Returns -1 if
// not found.
func IndexByte(buf []byte, start int, b byte) int {
	stride := wideStride()
	i := start
	target := broadcast(b)
	for ; i+stride <= len(buf); i += stride {
		hit := false
		for j := 0; j < stride; j += 8 {
			w := loadWord(buf, i+j)
			if hasZeroByte(w ^ target) {
				hit = true
				break
			}
		}
		if hit {
			break
		}
	}
	for ; i < len(buf); i++ {
		if buf[i] == b {
			return i
		}
	}
	return -1
}

// loadWord reads 8 little-endian bytes from buf starting at i.
func loadWord(buf []byte, i int) uint64 {
	return uint64(buf[i]) | uint64(buf[i+1])<<8 | uint64(buf[i+2])<<16 | uint64(buf[i+3])<<24 |
		uint64(buf[i+4])<<32 | uint64(buf[i+5])<<40 | uint64(buf[i+6])<<48 | uint64(buf[i+7])<<56
}

// CountByte counts occurrences of b in buf, used by the parallel
// block-boundary splitter to decide whether a candidate newline sits
// inside a quoted field (an odd running count of quote bytes up to that
// point means "still inside quotes").
func CountByte(buf []byte, b byte) int {
	return bytes.Count(buf, []byte{b})
}

// ScanClass finds the next byte that is one of delimiter, quote or
// newline ('\n'), skipping 8-byte words that hold none of the three.
// Returns the index of the first
// matching byte at or after start, and which class matched (0=delimiter,
// 1=quote, 2=newline), or (-1, 0) if none found before the end of buf.
func ScanClass(buf []byte, start int, delimiter, quote byte) (idx int, class int) {
	dTarget := broadcast(delimiter)
	qTarget := broadcast(quote)
	nTarget := broadcast('\n')
	i := start
	for ; i+8 <= len(buf); i += 8 {
		w := loadWord(buf, i)
		if hasZeroByte(w^dTarget) || hasZeroByte(w^qTarget) || hasZeroByte(w^nTarget) {
			break
		}
	}
	for ; i < len(buf); i++ {
		switch buf[i] {
		case delimiter:
			return i, 0
		case quote:
			return i, 1
		case '\n':
			return i, 2
		}
	}
	return -1, 0
}
