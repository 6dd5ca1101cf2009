package columnchunk

import (
	"encoding/binary"
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"

	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/pagestore"
)

// VarListColumnChunk stores one cumulative end-offset per value in its
// primary buffer (matching GetDataTypeSizeInChunk's sizeof(offset)) and
// keeps the flattened elements in a single child ColumnChunk, so a
// VAR_LIST of any element type (including nested VAR_LIST/STRUCT) reuses
// that element type's own append/flush logic instead of a bespoke payload
// buffer.
type VarListColumnChunk struct {
	base
	elemsWritten int64
}

func NewVarListColumnChunk(t common.LogicalType, elemChunk ColumnChunk) *VarListColumnChunk {
	c := &VarListColumnChunk{base: newBase(t)}
	c.children = []ColumnChunk{elemChunk}
	return c
}

func (c *VarListColumnChunk) Initialize(numValues int) {
	c.initBuffer(numValues)
	c.children[0].Initialize(numValues)
	c.elemsWritten = 0
}

func (c *VarListColumnChunk) ResetToEmpty() {
	c.resetToEmpty()
	c.children[0].ResetToEmpty()
	c.elemsWritten = 0
}

func (c *VarListColumnChunk) Resize(newNumValues int) {
	c.resizeBuffer(newNumValues)
}

func (c *VarListColumnChunk) endOffset(pos int) int64 {
	w := int(c.numBytesPerValue)
	return int64(binary.LittleEndian.Uint64(c.buffer[pos*w : pos*w+w]))
}

func (c *VarListColumnChunk) setEndOffset(pos int, v int64) {
	w := int(c.numBytesPerValue)
	binary.LittleEndian.PutUint64(c.buffer[pos*w:pos*w+w], uint64(v))
}

// Bounds returns the [start, end) element range for the list at pos.
func (c *VarListColumnChunk) Bounds(pos int) (start, end int64) {
	end = c.endOffset(pos)
	if pos == 0 {
		return 0, end
	}
	return c.endOffset(pos - 1), end
}

func (c *VarListColumnChunk) WriteNull(pos int) {
	c.nullChunk.SetNull(pos, true)
	c.setEndOffset(pos, c.elemsWritten)
}

// ElementChunk exposes the child chunk so a Driver can write individual
// list elements through its own typed Write* methods as it parses e.g.
// "{1,2,3}".
func (c *VarListColumnChunk) ElementChunk() ColumnChunk { return c.children[0] }

// CloseList records the end offset for pos once numElems elements for it
// have been appended to ElementChunk() starting from the running cursor.
func (c *VarListColumnChunk) CloseList(pos int, numElems int64) {
	c.elemsWritten += numElems
	c.setEndOffset(pos, c.elemsWritten)
	c.nullChunk.SetNull(pos, false)
}

func (c *VarListColumnChunk) AppendArrow(arr arrow.Array, startPosInChunk int) (int, error) {
	a, ok := arr.(*array.List)
	if !ok {
		return 0, fmt.Errorf("AppendArrow: VAR_LIST chunk expects *array.List, got %T", arr)
	}
	elemChunk := c.children[0]
	for i := 0; i < a.Len(); i++ {
		if a.IsNull(i) {
			c.WriteNull(startPosInChunk + i)
			continue
		}
		start, end := a.ValueOffsets(i)
		numElems := end - start
		if need := int(c.elemsWritten + numElems); need > elemChunk.Capacity() {
			newCap := 2 * elemChunk.Capacity()
			if newCap < need {
				newCap = need
			}
			elemChunk.Resize(newCap)
		}
		elems := array.NewSlice(a.ListValues(), start, end)
		if _, err := elemChunk.AppendArrow(elems, int(c.elemsWritten)); err != nil {
			return i, fmt.Errorf("append list element slice: %w", err)
		}
		c.CloseList(startPosInChunk+i, numElems)
	}
	return a.Len(), nil
}

func (c *VarListColumnChunk) AppendFrom(other ColumnChunk, startInOther, startInThis, n int) error {
	o, ok := other.(*VarListColumnChunk)
	if !ok {
		return fmt.Errorf("AppendFrom: type mismatch %T into VarListColumnChunk", other)
	}
	for i := 0; i < n; i++ {
		if o.nullChunk.IsNull(startInOther + i) {
			c.WriteNull(startInThis + i)
			continue
		}
		start, end := o.Bounds(startInOther + i)
		numElems := end - start
		if err := c.children[0].AppendFrom(o.children[0], int(start), int(c.elemsWritten), int(numElems)); err != nil {
			return err
		}
		c.CloseList(startInThis+i, numElems)
	}
	return nil
}

func (c *VarListColumnChunk) Flush(store pagestore.PageStore, startPageIdx int64) (int, error) {
	return c.flushValueBuffer(store, startPageIdx)
}

func (c *VarListColumnChunk) GetNumPages(pageSize int) int { return c.getNumPages(pageSize) }
