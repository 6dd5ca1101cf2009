package columnchunk

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"

	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/pagestore"
)

// PlainColumnChunk backs every fixed-width scalar type: BOOL, INT16/32/64,
// FLOAT, DOUBLE, DATE, TIMESTAMP, INTERVAL, INTERNAL_ID.
type PlainColumnChunk struct {
	base
}

func NewPlainColumnChunk(t common.LogicalType) *PlainColumnChunk {
	return &PlainColumnChunk{base: newBase(t)}
}

func (c *PlainColumnChunk) Initialize(numValues int) { c.initBuffer(numValues) }
func (c *PlainColumnChunk) ResetToEmpty()            { c.resetToEmpty() }
func (c *PlainColumnChunk) Resize(newNumValues int)  { c.resizeBuffer(newNumValues) }

func (c *PlainColumnChunk) Flush(store pagestore.PageStore, startPageIdx int64) (int, error) {
	return c.flushValueBuffer(store, startPageIdx)
}

func (c *PlainColumnChunk) GetNumPages(pageSize int) int { return c.getNumPages(pageSize) }

func (c *PlainColumnChunk) cell(pos int) []byte {
	w := int(c.numBytesPerValue)
	return c.buffer[pos*w : pos*w+w]
}

// WriteNull marks pos null; the underlying bytes are left as zero.
func (c *PlainColumnChunk) WriteNull(pos int) {
	c.nullChunk.SetNull(pos, true)
}

func (c *PlainColumnChunk) WriteInt64(pos int, v int64) {
	binary.LittleEndian.PutUint64(c.cell(pos), uint64(v))
	c.nullChunk.SetNull(pos, false)
}

func (c *PlainColumnChunk) WriteInt32(pos int, v int32) {
	binary.LittleEndian.PutUint32(c.cell(pos), uint32(v))
	c.nullChunk.SetNull(pos, false)
}

func (c *PlainColumnChunk) WriteInt16(pos int, v int16) {
	binary.LittleEndian.PutUint16(c.cell(pos), uint16(v))
	c.nullChunk.SetNull(pos, false)
}

func (c *PlainColumnChunk) WriteBool(pos int, v bool) {
	if v {
		c.cell(pos)[0] = 1
	} else {
		c.cell(pos)[0] = 0
	}
	c.nullChunk.SetNull(pos, false)
}

func (c *PlainColumnChunk) WriteFloat32(pos int, v float32) {
	binary.LittleEndian.PutUint32(c.cell(pos), math.Float32bits(v))
	c.nullChunk.SetNull(pos, false)
}

func (c *PlainColumnChunk) WriteFloat64(pos int, v float64) {
	binary.LittleEndian.PutUint64(c.cell(pos), math.Float64bits(v))
	c.nullChunk.SetNull(pos, false)
}

func (c *PlainColumnChunk) GetInt64(pos int) int64 {
	return int64(binary.LittleEndian.Uint64(c.cell(pos)))
}

func (c *PlainColumnChunk) GetInt32(pos int) int32 {
	return int32(binary.LittleEndian.Uint32(c.cell(pos)))
}

func (c *PlainColumnChunk) GetBool(pos int) bool { return c.cell(pos)[0] != 0 }

func (c *PlainColumnChunk) GetFloat64(pos int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(c.cell(pos)))
}

// SetValueFromString parses a CSV cell string into this chunk's physical
// type, per the §4.3 per-type parsers. An empty string is treated by the
// caller as a candidate null before this is invoked.
func (c *PlainColumnChunk) SetValueFromString(pos int, s string) error {
	switch c.dataType.ID {
	case common.BOOL:
		v, err := parseBool(s)
		if err != nil {
			return err
		}
		c.WriteBool(pos, v)
	case common.INT16:
		v, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return fmt.Errorf("parse INT16 %q: %w", s, err)
		}
		c.WriteInt16(pos, int16(v))
	case common.INT32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return fmt.Errorf("parse INT32 %q: %w", s, err)
		}
		c.WriteInt32(pos, int32(v))
	case common.INT64, common.INTERNAL_ID:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parse INT64 %q: %w", s, err)
		}
		c.WriteInt64(pos, v)
	case common.FLOAT:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return fmt.Errorf("parse FLOAT %q: %w", s, err)
		}
		c.WriteFloat32(pos, float32(v))
	case common.DOUBLE:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse DOUBLE %q: %w", s, err)
		}
		c.WriteFloat64(pos, v)
	case common.DATE:
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return fmt.Errorf("parse DATE %q: %w", s, err)
		}
		c.WriteInt32(pos, int32(t.Unix()/86400))
	case common.TIMESTAMP:
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t, err = time.Parse("2006-01-02 15:04:05", s)
			if err != nil {
				return fmt.Errorf("parse TIMESTAMP %q: %w", s, err)
			}
		}
		c.WriteInt64(pos, t.UnixMicro())
	case common.INTERVAL:
		micros, err := parseInterval(s)
		if err != nil {
			return err
		}
		c.WriteInt64(pos, micros)
	default:
		return fmt.Errorf("SetValueFromString: unsupported type %s", c.dataType)
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1":
		return true, nil
	case "false", "f", "0":
		return false, nil
	default:
		return false, fmt.Errorf("parse BOOL %q", s)
	}
}

// parseInterval understands the subset of SQL interval syntax this loader
// needs: "<n> years|months|days|hours|minutes|seconds", combined with
// whitespace, returned as total microseconds.
func parseInterval(s string) (int64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields)%2 != 0 {
		return 0, fmt.Errorf("parse INTERVAL %q: expected \"<n> <unit>\" pairs", s)
	}
	var totalMicros int64
	for i := 0; i < len(fields); i += 2 {
		n, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse INTERVAL %q: %w", s, err)
		}
		unit := strings.TrimSuffix(strings.ToLower(fields[i+1]), "s")
		var micros int64
		switch unit {
		case "year":
			micros = 365 * 24 * 3600 * 1_000_000
		case "month":
			micros = 30 * 24 * 3600 * 1_000_000
		case "day":
			micros = 24 * 3600 * 1_000_000
		case "hour":
			micros = 3600 * 1_000_000
		case "minute":
			micros = 60 * 1_000_000
		case "second":
			micros = 1_000_000
		default:
			return 0, fmt.Errorf("parse INTERVAL %q: unknown unit %q", s, fields[i+1])
		}
		totalMicros += n * micros
	}
	return totalMicros, nil
}

// AppendArrow copies n values starting at startPosInChunk from an
// Arrow-shaped source array, dispatching once on the array's physical
// type rather than inside the per-value loop.
func (c *PlainColumnChunk) AppendArrow(arr arrow.Array, startPosInChunk int) (int, error) {
	n := arr.Len()
	switch a := arr.(type) {
	case *array.Boolean:
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				c.WriteNull(startPosInChunk + i)
				continue
			}
			c.WriteBool(startPosInChunk+i, a.Value(i))
		}
	case *array.Int16:
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				c.WriteNull(startPosInChunk + i)
				continue
			}
			c.WriteInt16(startPosInChunk+i, a.Value(i))
		}
	case *array.Int32:
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				c.WriteNull(startPosInChunk + i)
				continue
			}
			c.WriteInt32(startPosInChunk+i, a.Value(i))
		}
	case *array.Int64:
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				c.WriteNull(startPosInChunk + i)
				continue
			}
			c.WriteInt64(startPosInChunk+i, a.Value(i))
		}
	case *array.Float32:
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				c.WriteNull(startPosInChunk + i)
				continue
			}
			c.WriteFloat32(startPosInChunk+i, a.Value(i))
		}
	case *array.Float64:
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				c.WriteNull(startPosInChunk + i)
				continue
			}
			c.WriteFloat64(startPosInChunk+i, a.Value(i))
		}
	case *array.String:
		// STRING source array into a non-STRING chunk: route through
		// the per-type setValueFromString parser, per spec §4.3.
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				c.WriteNull(startPosInChunk + i)
				continue
			}
			if err := c.SetValueFromString(startPosInChunk+i, a.Value(i)); err != nil {
				return i, err
			}
		}
	default:
		return 0, fmt.Errorf("AppendArrow: unsupported source array type %T for %s chunk", arr, c.dataType)
	}
	return n, nil
}

// RawBuffer exposes the primary byte buffer directly, for spill/reload
// paths that move a whole chunk as an opaque blob rather than replaying
// individual cell writes.
func (c *PlainColumnChunk) RawBuffer() []byte { return c.buffer }

func (c *PlainColumnChunk) AppendFrom(other ColumnChunk, startInOther, startInThis, n int) error {
	o, ok := other.(*PlainColumnChunk)
	if !ok {
		return fmt.Errorf("AppendFrom: type mismatch %T into PlainColumnChunk", other)
	}
	w := int(c.numBytesPerValue)
	copy(c.buffer[startInThis*w:(startInThis+n)*w], o.buffer[startInOther*w:(startInOther+n)*w])
	c.nullChunk.AppendFrom(o.nullChunk, startInOther, startInThis, n)
	return nil
}
