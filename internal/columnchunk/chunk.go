// Package columnchunk implements the typed in-memory column buffers that
// accumulate parsed cell values, track nulls, resize on overflow, and
// flush page-aligned byte runs to a pagestore.PageStore.
package columnchunk

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"

	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/pagestore"
)

// ColumnChunk is the shared contract every variant satisfies. Per-variant
// behavior (STRING's overflow buffer, STRUCT's child-only layout, ...) is
// reached through the concrete type, not through extra interface methods:
// the dispatch happens once, in Create (factory.go) and at the top of each
// variant's AppendArrow, not inside per-row copy loops.
type ColumnChunk interface {
	DataType() common.LogicalType
	NumBytesPerValue() uint32
	Capacity() int
	Initialize(numValues int)
	ResetToEmpty()
	Resize(newNumValues int)
	AppendArrow(arr arrow.Array, startPosInChunk int) (int, error)
	AppendFrom(other ColumnChunk, startInOther, startInThis, n int) error
	Flush(store pagestore.PageStore, startPageIdx int64) (int, error)
	GetNumPages(pageSize int) int
	NullChunk() *NullColumnChunk
	Children() []ColumnChunk
}

// base holds the fields and logic common to every variant: the
// owned byte buffer, its null mask, and child chunks (non-empty only for
// VAR_LIST/STRUCT). Variants embed base and override Initialize/Resize/
// AppendArrow/Flush where their layout differs.
type base struct {
	dataType         common.LogicalType
	numBytesPerValue uint32
	buffer           []byte
	capacity         int
	nullChunk        *NullColumnChunk
	children         []ColumnChunk
}

func newBase(t common.LogicalType) base {
	return base{
		dataType:         t,
		numBytesPerValue: common.GetDataTypeSizeInChunk(t),
	}
}

func (b *base) DataType() common.LogicalType { return b.dataType }
func (b *base) NumBytesPerValue() uint32      { return b.numBytesPerValue }
func (b *base) Capacity() int                 { return b.capacity }
func (b *base) NullChunk() *NullColumnChunk   { return b.nullChunk }
func (b *base) Children() []ColumnChunk       { return b.children }

func (b *base) initBuffer(numValues int) {
	b.capacity = numValues
	b.buffer = make([]byte, uint64(b.numBytesPerValue)*uint64(numValues))
	b.nullChunk = NewNullColumnChunk(numValues)
}

func (b *base) resetToEmpty() {
	for i := range b.buffer {
		b.buffer[i] = 0
	}
	if b.nullChunk != nil {
		b.nullChunk.ResetToEmpty()
	}
}

func (b *base) resizeBuffer(newNumValues int) {
	newBuf := make([]byte, uint64(b.numBytesPerValue)*uint64(newNumValues))
	copy(newBuf, b.buffer)
	b.buffer = newBuf
	b.capacity = newNumValues
	if b.nullChunk != nil {
		b.nullChunk.Resize(newNumValues)
	}
	for _, c := range b.children {
		c.Resize(newNumValues)
	}
}

// flushValueBuffer writes the primary buffer, then the null chunk if
// present, then children in preorder - matching the page ordering spec §6
// describes ("null pages follow the value pages... children follow in
// preorder").
func (b *base) flushValueBuffer(store pagestore.PageStore, startPageIdx int64) (int, error) {
	pageSize := store.PageSize()
	if _, err := store.Write(b.buffer, startPageIdx*int64(pageSize)); err != nil {
		return 0, fmt.Errorf("flush column buffer: %w", err)
	}
	pagesWritten := pagestore.NumPagesForBytes(len(b.buffer))
	nextPage := startPageIdx + int64(pagesWritten)

	if b.nullChunk != nil {
		n, err := b.nullChunk.Flush(store, nextPage)
		if err != nil {
			return 0, fmt.Errorf("flush null chunk: %w", err)
		}
		pagesWritten += n
		nextPage += int64(n)
	}
	for i, c := range b.children {
		n, err := c.Flush(store, nextPage)
		if err != nil {
			return 0, fmt.Errorf("flush child %d: %w", i, err)
		}
		pagesWritten += n
		nextPage += int64(n)
	}
	return pagesWritten, nil
}

func (b *base) getNumPages(pageSize int) int {
	n := pagestore.NumPagesForBytes(len(b.buffer))
	if b.nullChunk != nil {
		n += b.nullChunk.GetNumPages(pageSize)
	}
	for _, c := range b.children {
		n += c.GetNumPages(pageSize)
	}
	return n
}
