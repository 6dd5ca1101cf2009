package columnchunk

import (
	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/pagestore"
)

// NullColumnChunk is the bitmap companion every ColumnChunk optionally
// owns. numBytesForValues(n) = ceil(n/8), as spec'd.
type NullColumnChunk struct {
	mask *common.NullMask
}

func NewNullColumnChunk(numValues int) *NullColumnChunk {
	return &NullColumnChunk{mask: common.NewNullMask(numValues)}
}

func (n *NullColumnChunk) IsNull(pos int) bool  { return n.mask.IsNull(pos) }
func (n *NullColumnChunk) SetNull(pos int, v bool) { n.mask.Set(pos, v) }
func (n *NullColumnChunk) ResetToEmpty()           { n.mask.Reset() }
func (n *NullColumnChunk) Resize(newNumValues int) { n.mask.Resize(newNumValues) }
func (n *NullColumnChunk) Len() int                { return n.mask.Len() }

func (n *NullColumnChunk) AppendFrom(other *NullColumnChunk, startInOther, startInThis, numValues int) {
	n.mask.CopyRange(other.mask, startInOther, startInThis, numValues)
}

func (n *NullColumnChunk) SetRangeNoNull(pos, numValues int) {
	n.mask.SetRangeNoNull(pos, numValues)
}

// Flush writes the packed bitmap as its own page run, following the value
// pages of the owning chunk per spec §6.
func (n *NullColumnChunk) Flush(store pagestore.PageStore, startPageIdx int64) (int, error) {
	buf := n.mask.Bytes()
	if _, err := store.Write(buf, startPageIdx*int64(store.PageSize())); err != nil {
		return 0, err
	}
	return pagestore.NumPagesForBytes(len(buf)), nil
}

func (n *NullColumnChunk) GetNumPages(pageSize int) int {
	return (len(n.mask.Bytes()) + pageSize - 1) / pageSize
}

// RawBytes exposes the packed bitmap directly, for spill/reload paths
// that need to move the whole mask as an opaque byte blob.
func (n *NullColumnChunk) RawBytes() []byte { return n.mask.Bytes() }

// LoadRawBytes overwrites the packed bitmap from previously-saved bytes
// of the same length.
func (n *NullColumnChunk) LoadRawBytes(b []byte) {
	copy(n.mask.Bytes(), b)
}
