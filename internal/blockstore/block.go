// Package blockstore spills column-chunk buffers to an LZ4-compressed,
// footer-indexed block file for the ParallelDriver coordinator, which
// spills every completed block, and reads them back in block order for
// the final PageStore flush.
package blockstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// magic identifies a spill file written by this package.
var magic = [4]byte{'L', 'G', 'B', '1'}

// BlockMeta records one spilled block's location and identity within the
// file, enough for the coordinator to reassemble blocks in order.
type BlockMeta struct {
	BlockIdx        int    `json:"block_idx"`
	Offset          int64  `json:"offset"`
	CompressedSize  int64  `json:"compressed_size"`
	UncompressedSize int64 `json:"uncompressed_size"`
}

// footer is the JSON trailer: a sparse index of every block written.
type footer struct {
	Blocks []BlockMeta `json:"blocks"`
}

// BlockWriter appends LZ4-compressed blocks to a spill file and writes a
// JSON footer (plus its trailing big-endian length) on Close.
type BlockWriter struct {
	f      *os.File
	offset int64
	meta   []BlockMeta
}

func CreateBlockWriter(path string) (*BlockWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create block spill file: %w", err)
	}
	if _, err := f.Write(magic[:]); err != nil {
		f.Close()
		return nil, err
	}
	return &BlockWriter{f: f, offset: int64(len(magic))}, nil
}

// WriteBlock compresses data and appends it, tagged with blockIdx so the
// coordinator can later read blocks back in the order their source blocks
// occurred in the input file, regardless of spill order.
func (w *BlockWriter) WriteBlock(blockIdx int, data []byte) error {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	var c lz4.Compressor
	n, err := c.CompressBlock(data, compressed)
	if err != nil {
		return fmt.Errorf("lz4 compress block %d: %w", blockIdx, err)
	}
	compressed = compressed[:n]

	if _, err := w.f.WriteAt(compressed, w.offset); err != nil {
		return fmt.Errorf("write block %d: %w", blockIdx, err)
	}
	w.meta = append(w.meta, BlockMeta{
		BlockIdx:         blockIdx,
		Offset:           w.offset,
		CompressedSize:   int64(n),
		UncompressedSize: int64(len(data)),
	})
	w.offset += int64(n)
	return nil
}

// Close writes the JSON footer and its trailing length, then closes the
// file.
func (w *BlockWriter) Close() error {
	defer w.f.Close()
	ft := footer{Blocks: w.meta}
	data, err := json.Marshal(ft)
	if err != nil {
		return fmt.Errorf("marshal block footer: %w", err)
	}
	if _, err := w.f.WriteAt(data, w.offset); err != nil {
		return fmt.Errorf("write block footer: %w", err)
	}
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
	if _, err := w.f.WriteAt(lenBuf[:], w.offset+int64(len(data))); err != nil {
		return fmt.Errorf("write block footer length: %w", err)
	}
	return nil
}

// BlockReader opens a spill file written by BlockWriter and serves
// decompressed blocks by index, in whatever order the caller asks for -
// the coordinator drives that order, typically ascending BlockIdx.
type BlockReader struct {
	f    *os.File
	meta map[int]BlockMeta
}

func OpenBlockReader(path string) (*BlockReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open block spill file: %w", err)
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, err
	}
	if size < int64(len(magic))+8 {
		f.Close()
		return nil, fmt.Errorf("block spill file too small")
	}

	var lenBuf [8]byte
	if _, err := f.ReadAt(lenBuf[:], size-8); err != nil {
		f.Close()
		return nil, fmt.Errorf("read footer length: %w", err)
	}
	footerLen := int64(binary.BigEndian.Uint64(lenBuf[:]))
	if footerLen < 0 || footerLen > size-8-int64(len(magic)) {
		f.Close()
		return nil, fmt.Errorf("bad block spill file footer length %d", footerLen)
	}
	footerOffset := size - 8 - footerLen
	footerBuf := make([]byte, footerLen)
	if _, err := f.ReadAt(footerBuf, footerOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("read footer: %w", err)
	}
	var ft footer
	if err := json.Unmarshal(footerBuf, &ft); err != nil {
		f.Close()
		return nil, fmt.Errorf("parse footer: %w", err)
	}

	var magicBuf [4]byte
	if _, err := f.ReadAt(magicBuf[:], 0); err != nil || !bytes.Equal(magicBuf[:], magic[:]) {
		f.Close()
		return nil, fmt.Errorf("bad block spill file magic")
	}

	meta := make(map[int]BlockMeta, len(ft.Blocks))
	for _, m := range ft.Blocks {
		meta[m.BlockIdx] = m
	}
	return &BlockReader{f: f, meta: meta}, nil
}

func (r *BlockReader) Close() error { return r.f.Close() }

// BlockIndexes returns every spilled block index, ascending.
func (r *BlockReader) BlockIndexes() []int {
	out := make([]int, 0, len(r.meta))
	for idx := range r.meta {
		out = append(out, idx)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ReadBlock decompresses and returns the bytes spilled for blockIdx.
func (r *BlockReader) ReadBlock(blockIdx int) ([]byte, error) {
	m, ok := r.meta[blockIdx]
	if !ok {
		return nil, fmt.Errorf("no such spilled block %d", blockIdx)
	}
	compressed := make([]byte, m.CompressedSize)
	if _, err := r.f.ReadAt(compressed, m.Offset); err != nil {
		return nil, fmt.Errorf("read block %d: %w", blockIdx, err)
	}
	out := make([]byte, m.UncompressedSize)
	n, err := lz4.UncompressBlock(compressed, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress block %d: %w", blockIdx, err)
	}
	return out[:n], nil
}
