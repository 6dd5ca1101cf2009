package csvreader

import (
	"github.com/loomgraph/loomgraph/internal/columnchunk"
	"github.com/loomgraph/loomgraph/internal/common"
)

// Driver is the policy plugged into the state machine: it decides what to
// do with each parsed cell and completed row. AddValue returning false
// triggers the ignore_error path; AddRow returns 0 to reject the row
// (excluded from the accepted-row count) or 1 to accept it.
type Driver interface {
	Done(rowNum int64) bool
	AddValue(rowNum int64, columnIdx int, value []byte) bool
	AddRow(rowNum int64, numColumnsEmitted int) int
}

// SkipRowDriver discards the first skipNum rows during handleFirstBlock,
// accepting every cell/row silently.
type SkipRowDriver struct {
	skipNum int
}

func NewSkipRowDriver(skipNum int) *SkipRowDriver { return &SkipRowDriver{skipNum: skipNum} }

func (d *SkipRowDriver) Done(rowNum int64) bool                         { return rowNum >= int64(d.skipNum) }
func (d *SkipRowDriver) AddValue(int64, int, []byte) bool                { return true }
func (d *SkipRowDriver) AddRow(int64, int) int                           { return 1 }

// HeaderDriver consumes exactly one row (the header line) and records the
// header cell text, available afterwards through Names.
type HeaderDriver struct {
	done  bool
	names []string
}

func NewHeaderDriver() *HeaderDriver { return &HeaderDriver{} }

func (d *HeaderDriver) Done(int64) bool { return d.done }
func (d *HeaderDriver) AddValue(_ int64, _ int, value []byte) bool {
	d.names = append(d.names, string(value))
	return true
}
func (d *HeaderDriver) AddRow(int64, int) int {
	d.done = true
	return 1
}

// Names returns the collected header column names after the driver runs.
func (d *HeaderDriver) Names() []string { return d.names }

// sniffRowLimit bounds how many rows SniffDriver inspects before
// finalizing its per-column type guesses.
const sniffRowLimit = 100

// typePrecedence is the fixed order SniffDriver tries narrower types
// before falling back to STRING.
var typePrecedence = []common.TypeID{
	common.BOOL, common.INT64, common.DOUBLE, common.DATE, common.TIMESTAMP, common.STRING,
}

// SniffDriver records the first sniffRowLimit rows and, for each column,
// narrows a candidate set of types by attempting each type's parser in
// typePrecedence order; the first type every sampled value parsed as wins.
type SniffDriver struct {
	rowsSeen    int64
	candidates  [][]common.TypeID
	numColumns  int
}

func NewSniffDriver() *SniffDriver { return &SniffDriver{} }

func (d *SniffDriver) Done(rowNum int64) bool { return rowNum >= sniffRowLimit }

func (d *SniffDriver) AddValue(_ int64, columnIdx int, value []byte) bool {
	for len(d.candidates) <= columnIdx {
		cand := make([]common.TypeID, len(typePrecedence))
		copy(cand, typePrecedence)
		d.candidates = append(d.candidates, cand)
	}
	d.candidates[columnIdx] = narrowCandidates(d.candidates[columnIdx], string(value))
	if columnIdx+1 > d.numColumns {
		d.numColumns = columnIdx + 1
	}
	return true
}

func (d *SniffDriver) AddRow(int64, int) int { return 1 }

// InferredTypes returns the narrowest surviving type per column, STRING if
// every narrower candidate was eliminated (or no values were sampled).
func (d *SniffDriver) InferredTypes() []common.LogicalType {
	out := make([]common.LogicalType, d.numColumns)
	for i := 0; i < d.numColumns; i++ {
		chosen := common.STRING
		if i < len(d.candidates) {
			for _, t := range typePrecedence {
				if containsType(d.candidates[i], t) {
					chosen = t
					break
				}
			}
		}
		out[i] = common.Primitive(chosen)
	}
	return out
}

func containsType(cands []common.TypeID, t common.TypeID) bool {
	for _, c := range cands {
		if c == t {
			return true
		}
	}
	return false
}

// narrowCandidates drops any candidate type that fails to parse s, using a
// scratch chunk per type to reuse the real SetValueFromString parsers
// rather than duplicating parse logic.
func narrowCandidates(cands []common.TypeID, s string) []common.TypeID {
	if s == "" {
		return cands
	}
	kept := cands[:0]
	for _, t := range cands {
		if t == common.STRING {
			kept = append(kept, t)
			continue
		}
		scratch := columnchunk.NewPlainColumnChunk(common.Primitive(t))
		scratch.Initialize(1)
		if err := scratch.SetValueFromString(0, s); err == nil {
			kept = append(kept, t)
		}
	}
	return kept
}
