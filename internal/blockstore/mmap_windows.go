//go:build windows

package blockstore

import "os"

// MmapFile falls back to a full read on Windows; no zero-copy mapping is
// attempted there.
func MmapFile(f *os.File) ([]byte, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	return os.ReadFile(f.Name())
}

// MunmapFile is a no-op on the Windows fallback: the slice returned by
// MmapFile is a plain heap allocation, reclaimed by the garbage collector.
func MunmapFile(data []byte) error { return nil }
