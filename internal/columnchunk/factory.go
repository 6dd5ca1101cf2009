package columnchunk

import (
	"github.com/loomgraph/loomgraph/internal/common"
)

// NodeGroupSize is the default value capacity a column chunk is created
// with: a node group is the fixed-size batch of rows that forms one flush
// unit (2^17 rows).
const NodeGroupSize = 1 << 17

// Create dispatches on t's physical shape to build the correct ColumnChunk
// variant (plain, FixedList, String, VarList, Struct) and initializes it
// to capacity, mirroring the per-variant constructors the original chunk
// factory calls.
func Create(t common.LogicalType, capacity int) ColumnChunk {
	var chunk ColumnChunk
	switch t.ID {
	case common.STRING:
		chunk = NewStringColumnChunk(t)
	case common.FIXED_LIST:
		chunk = NewFixedListColumnChunk(t)
	case common.VAR_LIST:
		chunk = NewVarListColumnChunk(t, Create(*t.ElemType, capacity))
	case common.STRUCT:
		children := make([]ColumnChunk, len(t.Fields))
		for i, f := range t.Fields {
			children[i] = Create(f.Type, capacity)
		}
		chunk = NewStructColumnChunk(t, children)
	default:
		chunk = NewPlainColumnChunk(t)
	}
	chunk.Initialize(capacity)
	return chunk
}
