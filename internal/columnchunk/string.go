package columnchunk

import (
	"encoding/binary"
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"

	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/pagestore"
)

// StringColumnChunk stores a primary buffer of fixed-width (offset,
// length) descriptors and a growing overflow buffer holding the payload
// bytes themselves, per spec §3/§4.3. On flush, overflow pages follow the
// primary (and null) pages.
type StringColumnChunk struct {
	base
	overflow []byte
}

func NewStringColumnChunk(t common.LogicalType) *StringColumnChunk {
	return &StringColumnChunk{base: newBase(t)}
}

func (c *StringColumnChunk) Initialize(numValues int) {
	c.initBuffer(numValues)
	c.overflow = c.overflow[:0]
}

func (c *StringColumnChunk) ResetToEmpty() {
	c.resetToEmpty()
	c.overflow = c.overflow[:0]
}

func (c *StringColumnChunk) Resize(newNumValues int) { c.resizeBuffer(newNumValues) }

func (c *StringColumnChunk) descriptor(pos int) (offset, length int64) {
	w := int(c.numBytesPerValue)
	d := c.buffer[pos*w : pos*w+w]
	return int64(binary.LittleEndian.Uint64(d[0:8])), int64(binary.LittleEndian.Uint64(d[8:16]))
}

func (c *StringColumnChunk) setDescriptor(pos int, offset, length int64) {
	w := int(c.numBytesPerValue)
	d := c.buffer[pos*w : pos*w+w]
	binary.LittleEndian.PutUint64(d[0:8], uint64(offset))
	binary.LittleEndian.PutUint64(d[8:16], uint64(length))
}

// WriteString appends s to the overflow buffer and records its descriptor
// at pos.
func (c *StringColumnChunk) WriteString(pos int, s string) {
	offset := int64(len(c.overflow))
	c.overflow = append(c.overflow, s...)
	c.setDescriptor(pos, offset, int64(len(s)))
	c.nullChunk.SetNull(pos, false)
}

func (c *StringColumnChunk) WriteNull(pos int) {
	c.nullChunk.SetNull(pos, true)
}

func (c *StringColumnChunk) GetString(pos int) string {
	offset, length := c.descriptor(pos)
	return string(c.overflow[offset : offset+length])
}

func (c *StringColumnChunk) AppendArrow(arr arrow.Array, startPosInChunk int) (int, error) {
	a, ok := arr.(*array.String)
	if !ok {
		return 0, fmt.Errorf("AppendArrow: STRING chunk expects *array.String, got %T", arr)
	}
	for i := 0; i < a.Len(); i++ {
		if a.IsNull(i) {
			c.WriteNull(startPosInChunk + i)
			continue
		}
		c.WriteString(startPosInChunk+i, a.Value(i))
	}
	return a.Len(), nil
}

// RawBuffer exposes the descriptor buffer; RawOverflow exposes the
// variable-payload overflow buffer. Used by spill/reload, which moves a
// whole chunk at once rather than replaying individual cell writes.
func (c *StringColumnChunk) RawBuffer() []byte   { return c.buffer }
func (c *StringColumnChunk) RawOverflow() []byte { return c.overflow }
func (c *StringColumnChunk) SetOverflow(b []byte) { c.overflow = b }

func (c *StringColumnChunk) AppendFrom(other ColumnChunk, startInOther, startInThis, n int) error {
	o, ok := other.(*StringColumnChunk)
	if !ok {
		return fmt.Errorf("AppendFrom: type mismatch %T into StringColumnChunk", other)
	}
	for i := 0; i < n; i++ {
		if o.nullChunk.IsNull(startInOther + i) {
			c.WriteNull(startInThis + i)
			continue
		}
		c.WriteString(startInThis+i, o.GetString(startInOther+i))
	}
	return nil
}

func (c *StringColumnChunk) Flush(store pagestore.PageStore, startPageIdx int64) (int, error) {
	pagesWritten, err := c.flushValueBuffer(store, startPageIdx)
	if err != nil {
		return 0, err
	}
	nextPage := startPageIdx + int64(pagesWritten)
	if len(c.overflow) > 0 {
		if _, err := store.Write(c.overflow, nextPage*int64(store.PageSize())); err != nil {
			return 0, fmt.Errorf("flush string overflow: %w", err)
		}
		pagesWritten += pagestore.NumPagesForBytes(len(c.overflow))
	}
	return pagesWritten, nil
}

func (c *StringColumnChunk) GetNumPages(pageSize int) int {
	return c.getNumPages(pageSize) + pagestore.NumPagesForBytes(len(c.overflow))
}
