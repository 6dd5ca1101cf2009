package csvreader

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/loomgraph/loomgraph/internal/columnchunk"
	"github.com/loomgraph/loomgraph/internal/common"
)

// encodeChunkSet and decodeChunkSet move a SerialDriver's chunk set to
// and from an opaque byte blob for the ParallelDriver coordinator's spill
// file. They cover exactly the chunk kinds writeCell ever populates from
// raw CSV cells - Plain, String, FixedList - since VAR_LIST/STRUCT values
// never reach a SerialDriver/ParallelDriver through CSV parsing in this
// loader.
const (
	chunkKindPlain = iota
	chunkKindString
	chunkKindFixedList
)

func writeLenPrefixed(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readLenPrefixed(data []byte, pos int) (chunk []byte, next int, err error) {
	if pos+4 > len(data) {
		return nil, 0, fmt.Errorf("chunk codec: truncated length prefix")
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+n > len(data) {
		return nil, 0, fmt.Errorf("chunk codec: truncated payload")
	}
	return data[pos : pos+n], pos + n, nil
}

func encodeChunkSet(chunks []columnchunk.ColumnChunk) ([]byte, error) {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(chunks)))
	buf.Write(countBuf[:])

	for _, c := range chunks {
		switch ch := c.(type) {
		case *columnchunk.PlainColumnChunk:
			buf.WriteByte(chunkKindPlain)
			writeLenPrefixed(&buf, ch.RawBuffer())
			writeLenPrefixed(&buf, ch.NullChunk().RawBytes())
		case *columnchunk.StringColumnChunk:
			buf.WriteByte(chunkKindString)
			writeLenPrefixed(&buf, ch.RawBuffer())
			writeLenPrefixed(&buf, ch.NullChunk().RawBytes())
			writeLenPrefixed(&buf, ch.RawOverflow())
		case *columnchunk.FixedListColumnChunk:
			buf.WriteByte(chunkKindFixedList)
			writeLenPrefixed(&buf, ch.RawBuffer())
			writeLenPrefixed(&buf, ch.NullChunk().RawBytes())
		default:
			return nil, fmt.Errorf("chunk codec: unsupported chunk type %T for spill", c)
		}
	}
	return buf.Bytes(), nil
}

func decodeChunkSet(data []byte, types []common.LogicalType) ([]columnchunk.ColumnChunk, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("chunk codec: truncated chunk count")
	}
	count := int(binary.BigEndian.Uint32(data[0:4]))
	if count != len(types) {
		return nil, fmt.Errorf("chunk codec: column count %d does not match schema %d", count, len(types))
	}
	pos := 4
	out := make([]columnchunk.ColumnChunk, count)

	for i := 0; i < count; i++ {
		if pos >= len(data) {
			return nil, fmt.Errorf("chunk codec: truncated kind tag")
		}
		kind := data[pos]
		pos++

		switch kind {
		case chunkKindPlain:
			var bufBytes, nullBytes []byte
			var err error
			if bufBytes, pos, err = readLenPrefixed(data, pos); err != nil {
				return nil, err
			}
			if nullBytes, pos, err = readLenPrefixed(data, pos); err != nil {
				return nil, err
			}
			c := columnchunk.NewPlainColumnChunk(types[i])
			w := int(common.GetDataTypeSizeInChunk(types[i]))
			if w == 0 {
				w = 1
			}
			numValues := len(bufBytes) / w
			c.Initialize(numValues)
			copy(c.RawBuffer(), bufBytes)
			c.NullChunk().LoadRawBytes(nullBytes)
			out[i] = c
		case chunkKindString:
			var bufBytes, nullBytes, overflow []byte
			var err error
			if bufBytes, pos, err = readLenPrefixed(data, pos); err != nil {
				return nil, err
			}
			if nullBytes, pos, err = readLenPrefixed(data, pos); err != nil {
				return nil, err
			}
			if overflow, pos, err = readLenPrefixed(data, pos); err != nil {
				return nil, err
			}
			c := columnchunk.NewStringColumnChunk(types[i])
			numValues := len(bufBytes) / 16
			c.Initialize(numValues)
			copy(c.RawBuffer(), bufBytes)
			c.NullChunk().LoadRawBytes(nullBytes)
			c.SetOverflow(append([]byte(nil), overflow...))
			out[i] = c
		case chunkKindFixedList:
			var bufBytes, nullBytes []byte
			var err error
			if bufBytes, pos, err = readLenPrefixed(data, pos); err != nil {
				return nil, err
			}
			if nullBytes, pos, err = readLenPrefixed(data, pos); err != nil {
				return nil, err
			}
			c := columnchunk.NewFixedListColumnChunk(types[i])
			w := int(common.GetDataTypeSizeInChunk(types[i]))
			numValues := len(bufBytes) / w
			c.Initialize(numValues)
			copy(c.RawBuffer(), bufBytes)
			c.NullChunk().LoadRawBytes(nullBytes)
			out[i] = c
		default:
			return nil, fmt.Errorf("chunk codec: unknown kind tag %d", kind)
		}
	}
	return out, nil
}
