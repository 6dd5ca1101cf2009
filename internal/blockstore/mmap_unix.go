//go:build !windows

package blockstore

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile maps f's contents read-only for zero-copy access, used by the
// Bloom filter's mmap loading path. No Unix implementation of this
// contract shipped anywhere in the reference code this package was
// grounded on (only a Windows io.ReadAll fallback did); this follows that
// documented contract against the standard mmap(2) semantics.
func MmapFile(f *os.File) ([]byte, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat for mmap: %w", err)
	}
	size := st.Size()
	if size == 0 {
		return nil, fmt.Errorf("mmap: empty file")
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return data, nil
}

// MunmapFile releases a mapping obtained from MmapFile.
func MunmapFile(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}
