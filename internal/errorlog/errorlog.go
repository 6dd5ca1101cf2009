// Package errorlog persists the ordered CSVError stream a lenient
// ErrorHandler produces to a JSON sidecar file, as an ordered list of
// entries that each carry their block index, in the Load/Save-to-sidecar
// shape used elsewhere in this module for
// manifest and schema metadata.
package errorlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/loomgraph/loomgraph/internal/common"
)

// Entry is the JSON-serializable projection of a common.CSVError.
type Entry struct {
	Message            string `json:"message"`
	BlockIdx            int    `json:"block_idx"`
	NumRowsReadInBlock  int64  `json:"num_rows_read_in_block"`
	StartByteOffset     int64  `json:"start_byte_offset"`
	EndByteOffset       int64  `json:"end_byte_offset"`
}

// Log accumulates errors in memory and can Save/Load them as a JSON
// sidecar next to the ingested file.
type Log struct {
	mu      sync.Mutex
	path    string
	Entries []Entry `json:"entries"`
}

func sidecarPath(dataPath string) string {
	dir := filepath.Dir(dataPath)
	base := filepath.Base(dataPath)
	return filepath.Join(dir, base+".errors.json")
}

// New creates an empty, unsaved log for dataPath.
func New(dataPath string) *Log {
	return &Log{path: sidecarPath(dataPath)}
}

// Load reads an existing error log sidecar, or returns an empty one if
// none exists yet.
func Load(dataPath string) (*Log, error) {
	l := New(dataPath)
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read error log: %w", err)
	}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parse error log: %w", err)
	}
	return l, nil
}

// Record appends a CSVError to the in-memory log.
func (l *Log) Record(e *common.CSVError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, Entry{
		Message:            e.Message,
		BlockIdx:           e.BlockIdx,
		NumRowsReadInBlock: e.NumRowsReadInBlock,
		StartByteOffset:    e.Line.StartByteOffset,
		EndByteOffset:      e.Line.EndByteOffset,
	})
}

// Save writes the log to its sidecar path.
func (l *Log) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal error log: %w", err)
	}
	return os.WriteFile(l.path, data, 0644)
}

// Len reports how many errors have been recorded so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Entries)
}
