package columnchunk

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"

	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/pagestore"
)

// FixedListColumnChunk stores Width elements of ElemType packed inline per
// row - a fixed-width blob, never spilling to an overflow buffer. It
// parses the "{v1,v2,...}" cell syntax directly using the configured
// list-begin/end characters.
type FixedListColumnChunk struct {
	base
	elemType common.LogicalType
	width    int
	elemSize uint32
}

func NewFixedListColumnChunk(t common.LogicalType) *FixedListColumnChunk {
	return &FixedListColumnChunk{
		base:     newBase(t),
		elemType: *t.ElemType,
		width:    t.Width,
		elemSize: common.GetDataTypeSizeInChunk(*t.ElemType),
	}
}

func (c *FixedListColumnChunk) Initialize(numValues int) { c.initBuffer(numValues) }
func (c *FixedListColumnChunk) ResetToEmpty()            { c.resetToEmpty() }
func (c *FixedListColumnChunk) Resize(newNumValues int)  { c.resizeBuffer(newNumValues) }

func (c *FixedListColumnChunk) cell(pos int) []byte {
	w := int(c.numBytesPerValue)
	return c.buffer[pos*w : pos*w+w]
}

func (c *FixedListColumnChunk) WriteNull(pos int) { c.nullChunk.SetNull(pos, true) }

// WriteFromString parses "{v1,v2,...}" (begin/end chars supplied by the
// caller's CSVOption) into the fixed-width blob for pos.
func (c *FixedListColumnChunk) WriteFromString(pos int, s string, beginChar, endChar byte) error {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != beginChar || s[len(s)-1] != endChar {
		return fmt.Errorf("FIXED_LIST value %q missing %c...%c delimiters", s, beginChar, endChar)
	}
	inner := s[1 : len(s)-1]
	var parts []string
	if inner != "" {
		parts = strings.Split(inner, ",")
	}
	if len(parts) != c.width {
		return fmt.Errorf("FIXED_LIST value %q has %d elements, want %d", s, len(parts), c.width)
	}
	cell := c.cell(pos)
	for i, p := range parts {
		if err := writeFixedElement(cell[i*int(c.elemSize):(i+1)*int(c.elemSize)], c.elemType, strings.TrimSpace(p)); err != nil {
			return fmt.Errorf("FIXED_LIST element %d: %w", i, err)
		}
	}
	c.nullChunk.SetNull(pos, false)
	return nil
}

func writeFixedElement(dst []byte, t common.LogicalType, s string) error {
	switch t.ID {
	case common.BOOL:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		if v {
			dst[0] = 1
		}
	case common.INT16:
		v, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case common.INT32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case common.INT64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(dst, uint64(v))
	case common.FLOAT:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case common.DOUBLE:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	default:
		return fmt.Errorf("unsupported FIXED_LIST element type %s", t)
	}
	return nil
}

func (c *FixedListColumnChunk) AppendArrow(arr arrow.Array, startPosInChunk int) (int, error) {
	return 0, fmt.Errorf("AppendArrow: FIXED_LIST chunks are populated via WriteFromString, not arrow source arrays")
}

// RawBuffer exposes the packed fixed-width blob buffer directly.
func (c *FixedListColumnChunk) RawBuffer() []byte { return c.buffer }

func (c *FixedListColumnChunk) AppendFrom(other ColumnChunk, startInOther, startInThis, n int) error {
	o, ok := other.(*FixedListColumnChunk)
	if !ok {
		return fmt.Errorf("AppendFrom: type mismatch %T into FixedListColumnChunk", other)
	}
	w := int(c.numBytesPerValue)
	copy(c.buffer[startInThis*w:(startInThis+n)*w], o.buffer[startInOther*w:(startInOther+n)*w])
	c.nullChunk.AppendFrom(o.nullChunk, startInOther, startInThis, n)
	return nil
}

func (c *FixedListColumnChunk) Flush(store pagestore.PageStore, startPageIdx int64) (int, error) {
	return c.flushValueBuffer(store, startPageIdx)
}

func (c *FixedListColumnChunk) GetNumPages(pageSize int) int { return c.getNumPages(pageSize) }
