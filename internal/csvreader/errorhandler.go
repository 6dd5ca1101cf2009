package csvreader

import (
	"sync"

	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/errorlog"
)

// ErrorHandler decides whether a recorded CSVError aborts the load or is
// skipped and counted. Implementations must be safe for concurrent use:
// a ParallelDriver coordinator shares one handler across readers.
type ErrorHandler interface {
	// HandleError returns (true, nil) if the parser should resynchronize
	// via skipCurrentLine and continue, or (false, err) if it must
	// propagate err and abort the load. CSVError.MustThrow always
	// forces the second outcome regardless of policy.
	HandleError(e *common.CSVError) (skip bool, err error)
}

// StrictErrorHandler aborts the load on the first error of any kind.
type StrictErrorHandler struct{}

func NewStrictErrorHandler() *StrictErrorHandler { return &StrictErrorHandler{} }

func (StrictErrorHandler) HandleError(e *common.CSVError) (bool, error) {
	return false, e
}

// LenientErrorHandler records the error and its block's running count,
// then tells the parser to skip the offending line. A CSVError with
// MustThrow set (I/O failures, cancellation) still escalates to abort.
type LenientErrorHandler struct {
	log          *errorlog.Log
	mu           sync.Mutex
	blockErrors  map[int]int
}

func NewLenientErrorHandler(log *errorlog.Log) *LenientErrorHandler {
	return &LenientErrorHandler{log: log, blockErrors: make(map[int]int)}
}

func (h *LenientErrorHandler) HandleError(e *common.CSVError) (bool, error) {
	if e.MustThrow {
		return false, e
	}
	h.log.Record(e)
	h.mu.Lock()
	h.blockErrors[e.BlockIdx]++
	h.mu.Unlock()
	return true, nil
}

// ErrorCount returns how many errors have been recorded for blockIdx. A
// row counted here was rejected outright (schema/type/syntax failure) and
// is counted once per distinct CSVError emitted to the handler, not once
// per internal retry the reader performs resynchronizing past it.
func (h *LenientErrorHandler) ErrorCount(blockIdx int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.blockErrors[blockIdx]
}

// Errors exposes the ordered CSVError stream collected so far, satisfying
// the "Error stream: ordered list of CSVError records when lenient mode
// is active" external interface.
func (h *LenientErrorHandler) Errors() []errorlog.Entry {
	return h.log.Entries
}
