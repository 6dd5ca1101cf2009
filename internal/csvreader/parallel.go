package csvreader

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/loomgraph/loomgraph/internal/blockstore"
	"github.com/loomgraph/loomgraph/internal/columnchunk"
	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/simd"
)

// ParallelDriver owns one block's own chunk set; it is Done after that
// one block is consumed. The coordinator (ParallelLoad) runs many of
// these concurrently over disjoint byte ranges of the same file.
type ParallelDriver struct {
	*SerialDriver
	blockIdx int
	reader   *Reader
	end      int64 // byte offset where the next block begins
}

func (d *ParallelDriver) Done(rowNum int64) bool {
	return d.SerialDriver.Done(rowNum) || d.reader.GetFileOffset() >= d.end
}

// findSafeRecordBoundary scans backward from candidate (a byte offset
// inside buf) to the nearest newline that is not inside a quoted field,
// so a parallel block split never cuts a multi-line quoted value in two.
// It works by counting quote bytes between the start of buf and each
// newline candidate: an odd running count means the newline falls inside
// an open quote.
func findSafeRecordBoundary(buf []byte, candidate int, quote byte) int {
	quotesBeforeCandidate := simd.CountByte(buf[:candidate], quote)
	pos := candidate
	for pos > 0 {
		idx := lastIndexByte(buf[:pos], '\n')
		if idx < 0 {
			return 0
		}
		quotesBefore := simd.CountByte(buf[:idx], quote)
		if quotesBefore%2 == 0 {
			return idx + 1
		}
		pos = idx
	}
	_ = quotesBeforeCandidate
	return 0
}

func lastIndexByte(buf []byte, b byte) int {
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] == b {
			return i
		}
	}
	return -1
}

// splitBlocks divides [0, fileSize) into numWorkers candidate ranges and
// nudges every internal boundary back to the nearest safe (non-quoted)
// newline using a small peek window read from the file.
func splitBlocks(f *os.File, fileSize int64, numWorkers int, quote byte) ([]int64, error) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	bounds := make([]int64, numWorkers+1)
	bounds[0] = 0
	bounds[numWorkers] = fileSize
	chunkSize := fileSize / int64(numWorkers)

	const peekWindow = 1 << 20
	for i := 1; i < numWorkers; i++ {
		candidate := int64(i) * chunkSize
		if candidate >= fileSize {
			candidate = fileSize
		}
		windowStart := candidate - peekWindow
		if windowStart < 0 {
			windowStart = 0
		}
		windowLen := candidate - windowStart
		if windowLen <= 0 {
			bounds[i] = candidate
			continue
		}
		buf := make([]byte, windowLen)
		if _, err := f.ReadAt(buf, windowStart); err != nil {
			return nil, fmt.Errorf("peek for block boundary: %w", err)
		}
		safe := findSafeRecordBoundary(buf, len(buf), quote)
		bounds[i] = windowStart + int64(safe)
	}
	return bounds, nil
}

// ParallelResult is one worker's completed chunk set, tagged with its
// block index so the coordinator can restore file order.
type ParallelResult struct {
	BlockIdx int
	Chunks   []columnchunk.ColumnChunk
	Rows     int64
}

// ParallelLoad runs one ParallelDriver per disjoint byte range of path,
// spilling each block's chunk set to a blockstore spill file as it
// completes (since holding every block's chunks in memory at once would
// defeat the purpose of chunking by node group), then replays them back
// in block order through collect.
func ParallelLoad(path string, types []common.LogicalType, option common.CSVOption, errh ErrorHandler, numWorkers int, cancelled *atomic.Bool, spillPath string, collect func(blockIdx int, chunks []columnchunk.ColumnChunk, rows int64) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv for parallel load: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	fileSize := st.Size()

	bounds, err := splitBlocks(f, fileSize, numWorkers, option.QuoteChar)
	f.Close()
	if err != nil {
		return err
	}

	writer, err := blockstore.CreateBlockWriter(spillPath)
	if err != nil {
		return fmt.Errorf("create spill writer: %w", err)
	}

	var (
		mu          sync.Mutex
		writeErr    error
		wg          sync.WaitGroup
		resultsMeta []ParallelResult
	)

	for i := 0; i < len(bounds)-1; i++ {
		blockIdx := i
		start := bounds[i]
		end := bounds[i+1]
		if end <= start {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			reader, err := NewReaderAt(path, start, blockIdx, option, errh, cancelled)
			if err != nil {
				mu.Lock()
				writeErr = err
				mu.Unlock()
				return
			}
			defer reader.Close()

			if blockIdx == 0 {
				if _, err := reader.HandleFirstBlock(); err != nil {
					mu.Lock()
					writeErr = err
					mu.Unlock()
					return
				}
			}

			driver := &ParallelDriver{
				SerialDriver: NewSerialDriver(types, columnchunk.NodeGroupSize, option, nil),
				blockIdx:     blockIdx,
				reader:       reader,
				end:          end,
			}
			rows, err := reader.ParseCSV(driver)
			if err != nil {
				mu.Lock()
				writeErr = err
				mu.Unlock()
				return
			}

			encoded, err := encodeChunkSet(driver.Chunks())
			if err != nil {
				mu.Lock()
				writeErr = err
				mu.Unlock()
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if err := writer.WriteBlock(blockIdx, encoded); err != nil {
				writeErr = err
				return
			}
			resultsMeta = append(resultsMeta, ParallelResult{BlockIdx: blockIdx, Rows: rows})
		}()
	}
	wg.Wait()

	if cerr := writer.Close(); cerr != nil && writeErr == nil {
		writeErr = cerr
	}
	if writeErr != nil {
		return writeErr
	}

	reader, err := blockstore.OpenBlockReader(spillPath)
	if err != nil {
		return fmt.Errorf("reopen spill file for collect: %w", err)
	}
	defer reader.Close()

	cache := blockstore.NewCache(256 << 20)
	rowsByBlock := make(map[int]int64, len(resultsMeta))
	for _, r := range resultsMeta {
		rowsByBlock[r.BlockIdx] = r.Rows
	}

	for _, idx := range reader.BlockIndexes() {
		data, ok := cache.Get(idx)
		if !ok {
			data, err = reader.ReadBlock(idx)
			if err != nil {
				return err
			}
			cache.Put(idx, data)
		}
		chunks, err := decodeChunkSet(data, types)
		if err != nil {
			return err
		}
		if err := collect(idx, chunks, rowsByBlock[idx]); err != nil {
			return err
		}
	}
	return nil
}
