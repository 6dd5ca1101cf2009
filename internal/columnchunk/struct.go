package columnchunk

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"

	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/pagestore"
)

// StructColumnChunk is a pure parent of child chunks: its own primary
// buffer is zero bytes wide (GetDataTypeSizeInChunk(STRUCT) == 0), it only
// owns a null mask and an ordered child per field.
type StructColumnChunk struct {
	base
	fieldNames []string
}

func NewStructColumnChunk(t common.LogicalType, children []ColumnChunk) *StructColumnChunk {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	c := &StructColumnChunk{base: newBase(t), fieldNames: names}
	c.children = children
	return c
}

func (c *StructColumnChunk) Initialize(numValues int) {
	c.initBuffer(numValues)
	for _, ch := range c.children {
		ch.Initialize(numValues)
	}
}

func (c *StructColumnChunk) ResetToEmpty() {
	c.resetToEmpty()
	for _, ch := range c.children {
		ch.ResetToEmpty()
	}
}

func (c *StructColumnChunk) Resize(newNumValues int) { c.resizeBuffer(newNumValues) }

func (c *StructColumnChunk) WriteNull(pos int) {
	c.nullChunk.SetNull(pos, true)
}

// FieldChunk returns the child chunk for the given field name, or nil.
func (c *StructColumnChunk) FieldChunk(name string) ColumnChunk {
	for i, n := range c.fieldNames {
		if n == name {
			return c.children[i]
		}
	}
	return nil
}

func (c *StructColumnChunk) AppendArrow(arr arrow.Array, startPosInChunk int) (int, error) {
	a, ok := arr.(*array.Struct)
	if !ok {
		return 0, fmt.Errorf("AppendArrow: STRUCT chunk expects *array.Struct, got %T", arr)
	}
	for fieldIdx, ch := range c.children {
		if _, err := ch.AppendArrow(a.Field(fieldIdx), startPosInChunk); err != nil {
			return 0, fmt.Errorf("append struct field %d: %w", fieldIdx, err)
		}
	}
	for i := 0; i < a.Len(); i++ {
		c.nullChunk.SetNull(startPosInChunk+i, a.IsNull(i))
	}
	return a.Len(), nil
}

func (c *StructColumnChunk) AppendFrom(other ColumnChunk, startInOther, startInThis, n int) error {
	o, ok := other.(*StructColumnChunk)
	if !ok {
		return fmt.Errorf("AppendFrom: type mismatch %T into StructColumnChunk", other)
	}
	for i, ch := range c.children {
		if err := ch.AppendFrom(o.children[i], startInOther, startInThis, n); err != nil {
			return err
		}
	}
	c.nullChunk.AppendFrom(o.nullChunk, startInOther, startInThis, n)
	return nil
}

func (c *StructColumnChunk) Flush(store pagestore.PageStore, startPageIdx int64) (int, error) {
	return c.flushValueBuffer(store, startPageIdx)
}

func (c *StructColumnChunk) GetNumPages(pageSize int) int { return c.getNumPages(pageSize) }
