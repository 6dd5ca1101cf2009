// Package session is the bulk-load entry point: it wires Driver choice,
// ErrorHandler policy, the ColumnChunk factory, PageStore flush and
// manifest recording into the single copy() operation this repository
// exposes. Query planning and execution remain outside its scope.
package session

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/loomgraph/loomgraph/internal/bloom"
	"github.com/loomgraph/loomgraph/internal/catalog"
	"github.com/loomgraph/loomgraph/internal/columnchunk"
	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/csvreader"
	"github.com/loomgraph/loomgraph/internal/errorlog"
	"github.com/loomgraph/loomgraph/internal/manifest"
	"github.com/loomgraph/loomgraph/internal/pagestore"
)

// CopyOptions configures one bulk-load call, layered on top of the raw
// CSVOption dialect settings.
type CopyOptions struct {
	CSV      common.CSVOption
	Lenient  bool
	Parallel bool
	Workers  int
}

// DefaultCopyOptions returns the conventional comma-dialect, strict,
// single-threaded configuration.
func DefaultCopyOptions() CopyOptions {
	return CopyOptions{CSV: common.DefaultCSVOption(), Lenient: false, Parallel: false, Workers: runtime.NumCPU()}
}

// CopyResult reports the outcome of a copy() call.
type CopyResult struct {
	RowsInserted int64
	Errors       []errorlog.Entry
}

// Session is a single local database directory's entry point. An
// interrupt flag is cooperatively checked by the reader at buffer refill
// and end-of-row, matching the ActiveQuery.interrupted model this is
// grounded on.
type Session struct {
	dataDir   string
	catalog   *catalog.Catalog
	cancelled atomic.Bool
}

func New(dataDir string, cat *catalog.Catalog) *Session {
	return &Session{dataDir: dataDir, catalog: cat}
}

// Cancel requests cooperative cancellation of any in-flight copy() call.
func (s *Session) Cancel() { s.cancelled.Store(true) }

// CopyFrom ingests path into table, dispatching to a serial or parallel
// driver per opts.Parallel, tracking a Bloom-filter duplicate pre-check
// over the table's primary key column, and recording the resulting page
// ranges in the table's manifest.
func (s *Session) CopyFrom(table, path string, opts CopyOptions) (CopyResult, error) {
	def, err := s.catalog.Table(table)
	if err != nil {
		return CopyResult{}, err
	}
	if ft, ferr := common.FileTypeForExtension(filepath.Ext(path)); ferr == nil && ft != common.FileTypeCSV {
		return CopyResult{}, fmt.Errorf("copy from %s: file type %s is recognized but not supported; only CSV can be loaded", path, ft)
	}
	types := make([]common.LogicalType, len(def.Columns))
	for i, c := range def.Columns {
		types[i] = c.Type
	}

	var errHandler csvreader.ErrorHandler
	var log *errorlog.Log
	if opts.Lenient {
		log = errorlog.New(path)
		errHandler = csvreader.NewLenientErrorHandler(log)
	} else {
		errHandler = csvreader.NewStrictErrorHandler()
	}

	store, err := pagestore.OpenFileStore(s.dataDir + "/" + table + ".data")
	if err != nil {
		return CopyResult{}, err
	}
	defer store.Close()

	man, err := manifest.Load(s.dataDir + "/" + table + ".data")
	if err != nil {
		return CopyResult{}, err
	}

	pkBloom := bloom.New(columnchunk.NodeGroupSize, 0.01)
	var pkDuplicates int64

	flushSet := func(nodeGroupIdx int, chunks []columnchunk.ColumnChunk, numRows int64) error {
		if def.PrimaryKeyIdx >= 0 && def.PrimaryKeyIdx < len(chunks) {
			checkPrimaryKeys(chunks[def.PrimaryKeyIdx], int(numRows), pkBloom, &pkDuplicates)
		}
		entry := manifest.NodeGroupEntry{NodeGroupIdx: nodeGroupIdx, NumRows: numRows}
		for _, c := range chunks {
			numPages := c.GetNumPages(store.PageSize())
			allocStart, err := store.AllocatePageRange(numPages)
			if err != nil {
				return err
			}
			if _, err := c.Flush(store, allocStart); err != nil {
				return fmt.Errorf("flush column: %w", err)
			}
			entry.Columns = append(entry.Columns, manifest.PageRange{StartPageIdx: allocStart, NumPages: numPages})
		}
		man.RecordNodeGroup(table, entry)
		return nil
	}

	var totalRows int64

	if opts.Parallel {
		workers := opts.Workers
		if workers < 1 {
			workers = 1
		}
		spillPath := s.dataDir + "/" + table + ".spill"
		err := csvreader.ParallelLoad(path, types, opts.CSV, errHandler, workers, &s.cancelled, spillPath,
			func(blockIdx int, chunks []columnchunk.ColumnChunk, rows int64) error {
				if err := flushSet(blockIdx, chunks, rows); err != nil {
					return err
				}
				totalRows += rows
				return nil
			})
		if err != nil {
			return CopyResult{}, err
		}
	} else {
		reader, err := csvreader.NewReader(path, opts.CSV, errHandler, &s.cancelled)
		if err != nil {
			return CopyResult{}, err
		}
		defer reader.Close()

		if _, err := reader.HandleFirstBlock(); err != nil {
			return CopyResult{}, err
		}

		nodeGroupIdx := 0
		for {
			driver := csvreader.NewSerialDriver(types, columnchunk.NodeGroupSize, opts.CSV, nil)
			rows, err := reader.ParseCSV(driver)
			if err != nil {
				return CopyResult{}, err
			}
			if rows == 0 {
				break
			}
			if err := flushSet(nodeGroupIdx, driver.Chunks(), rows); err != nil {
				return CopyResult{}, err
			}
			totalRows += rows
			nodeGroupIdx++
			if rows < int64(columnchunk.NodeGroupSize) {
				break
			}
		}
	}

	if err := man.Save(); err != nil {
		return CopyResult{}, err
	}

	result := CopyResult{RowsInserted: totalRows}
	if log != nil {
		if err := log.Save(); err != nil {
			return result, err
		}
		result.Errors = log.Entries
	}
	return result, nil
}

// checkPrimaryKeys feeds every primary-key cell in chunk through the Bloom
// filter (STRING cells as-is, cells of a plain chunk read as INT64 and
// formatted in decimal; other chunk kinds are skipped), incrementing dupCount for any value the filter
// reports as already-seen. This is a pre-check only: a false positive
// here still needs the authoritative catalog lookup before rejecting a
// row, which this ingestion-only scope does not perform.
func checkPrimaryKeys(chunk columnchunk.ColumnChunk, numRows int, filter *bloom.Filter, dupCount *int64) {
	sc, ok := chunk.(*columnchunk.StringColumnChunk)
	if !ok {
		pc, ok := chunk.(*columnchunk.PlainColumnChunk)
		if !ok {
			return
		}
		for i := 0; i < numRows; i++ {
			key := fmt.Sprintf("%d", pc.GetInt64(i))
			if filter.MightContain(key) {
				*dupCount++
			}
			filter.Add(key)
		}
		return
	}
	for i := 0; i < numRows; i++ {
		key := sc.GetString(i)
		if filter.MightContain(key) {
			*dupCount++
		}
		filter.Add(key)
	}
}
