package csvreader

import (
	"github.com/loomgraph/loomgraph/internal/columnchunk"
	"github.com/loomgraph/loomgraph/internal/common"
)

// SerialDriver writes into a single, shared set of column chunks and is
// Done once that set reaches node-group capacity.
type SerialDriver struct {
	chunks      []columnchunk.ColumnChunk
	types       []common.LogicalType
	capacity    int
	rowsInChunk int
	nullOnEmpty []bool
	listBegin   byte
	listEnd     byte
}

// NewSerialDriver builds a fresh chunk per column type at the given
// capacity (typically columnchunk.NodeGroupSize). nullOnEmpty, if nil,
// defaults every column to treating an empty unquoted field as null.
func NewSerialDriver(types []common.LogicalType, capacity int, opt common.CSVOption, nullOnEmpty []bool) *SerialDriver {
	chunks := make([]columnchunk.ColumnChunk, len(types))
	for i, t := range types {
		chunks[i] = columnchunk.Create(t, capacity)
	}
	if nullOnEmpty == nil {
		nullOnEmpty = make([]bool, len(types))
		for i := range nullOnEmpty {
			nullOnEmpty[i] = true
		}
	}
	return &SerialDriver{
		chunks:      chunks,
		types:       types,
		capacity:    capacity,
		nullOnEmpty: nullOnEmpty,
		listBegin:   opt.ListBeginChar,
		listEnd:     opt.ListEndChar,
	}
}

func (d *SerialDriver) Done(int64) bool { return d.rowsInChunk >= d.capacity }

func (d *SerialDriver) Chunks() []columnchunk.ColumnChunk { return d.chunks }

func (d *SerialDriver) AddValue(_ int64, columnIdx int, value []byte) bool {
	if columnIdx >= len(d.chunks) {
		return false
	}
	return writeCell(d.chunks[columnIdx], d.rowsInChunk, value, d.nullOnEmpty[columnIdx], d.listBegin, d.listEnd)
}

func (d *SerialDriver) AddRow(_ int64, numColumnsEmitted int) int {
	if numColumnsEmitted != len(d.chunks) {
		return 0
	}
	d.rowsInChunk++
	return 1
}

// writeCell applies the shared empty-field-is-null policy and then
// dispatches to the concrete chunk type's own writer - this is the single
// entry point per cell, matching the "dispatch at entry, not in the inner
// loop" design note.
func writeCell(chunk columnchunk.ColumnChunk, pos int, value []byte, nullOnEmpty bool, listBegin, listEnd byte) bool {
	if len(value) == 0 && nullOnEmpty {
		writeNull(chunk, pos)
		return true
	}
	switch c := chunk.(type) {
	case *columnchunk.PlainColumnChunk:
		if err := c.SetValueFromString(pos, string(value)); err != nil {
			return false
		}
	case *columnchunk.StringColumnChunk:
		c.WriteString(pos, string(value))
	case *columnchunk.FixedListColumnChunk:
		if err := c.WriteFromString(pos, string(value), listBegin, listEnd); err != nil {
			return false
		}
	default:
		return false
	}
	return true
}

func writeNull(chunk columnchunk.ColumnChunk, pos int) {
	switch c := chunk.(type) {
	case *columnchunk.PlainColumnChunk:
		c.WriteNull(pos)
	case *columnchunk.StringColumnChunk:
		c.WriteNull(pos)
	case *columnchunk.FixedListColumnChunk:
		c.WriteNull(pos)
	case *columnchunk.VarListColumnChunk:
		c.WriteNull(pos)
	}
}
