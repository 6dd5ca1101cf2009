// Package bloom implements a probabilistic duplicate pre-check over
// primary key values streamed into a node table's primary-key column
// chunk, ahead of the authoritative (and far more expensive) catalog
// check. It answers only "this key was definitely not seen before" with
// full accuracy; a "might have been seen" result still needs the real
// check.
package bloom

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/loomgraph/loomgraph/internal/blockstore"
)

// Filter is a space-efficient probabilistic set over string-encoded
// primary key values.
type Filter struct {
	bits      []byte
	size      int
	hashCount int
	count     int
}

// New creates a filter sized for n expected keys at the given false
// positive rate (e.g. 0.01 for 1%).
func New(n int, fpRate float64) *Filter {
	if n < 1 {
		n = 1
	}
	if fpRate <= 0 {
		fpRate = 0.01
	}

	m := int(-float64(n) * naturalLog(fpRate) / 0.4804)
	if m < 1024 {
		m = 1024
	}
	m = ((m + 7) / 8) * 8

	k := int(float64(m) / float64(n) * 0.693)
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10
	}

	return &Filter{bits: make([]byte, m/8), size: m, hashCount: k}
}

// naturalLog is a small approximation sufficient for sizing a bloom
// filter; exact precision doesn't matter since m/k are already rounded.
func naturalLog(x float64) float64 {
	switch x {
	case 0.01:
		return -4.605
	case 0.001:
		return -6.907
	}
	result := 0.0
	for x > 1 {
		x /= 2.718
		result++
	}
	return result + (x - 1)
}

func (f *Filter) positions(key string) (h1, h2 uint32) {
	keyBytes := []byte(key)
	h1 = crc32.ChecksumIEEE(keyBytes)

	var buf [256]byte
	reversed := buf[:0]
	for i := len(keyBytes) - 1; i >= 0; i-- {
		reversed = append(reversed, keyBytes[i])
	}
	reversed = append(reversed, "pk-salt"...)
	h2 = crc32.ChecksumIEEE(reversed)
	return h1, h2
}

// Add records key as present.
func (f *Filter) Add(key string) {
	h1, h2 := f.positions(key)
	for i := 0; i < f.hashCount; i++ {
		pos := combine(h1, h2, i, f.size)
		f.bits[pos/8] |= 1 << uint(pos%8)
	}
	f.count++
}

// MightContain reports whether key may have been added before. false is
// a guarantee; true is a candidate that still needs the authoritative
// catalog lookup.
func (f *Filter) MightContain(key string) bool {
	h1, h2 := f.positions(key)
	for i := 0; i < f.hashCount; i++ {
		pos := combine(h1, h2, i, f.size)
		if f.bits[pos/8]&(1<<uint(pos%8)) == 0 {
			return false
		}
	}
	return true
}

func combine(h1, h2 uint32, i, size int) int {
	combined := int(h1) + i*int(h2)
	if combined < 0 {
		combined = -combined
	}
	return combined % size
}

// Serialize encodes the filter as a 24-byte header (size, hashCount,
// count, all big-endian uint64) followed by the bit array.
func (f *Filter) Serialize() []byte {
	header := make([]byte, 24)
	binary.BigEndian.PutUint64(header[0:8], uint64(f.size))
	binary.BigEndian.PutUint64(header[8:16], uint64(f.hashCount))
	binary.BigEndian.PutUint64(header[16:24], uint64(f.count))
	return append(header, f.bits...)
}

// Deserialize parses the format Serialize produces.
func Deserialize(data []byte) (*Filter, error) {
	if len(data) < 24 {
		return nil, fmt.Errorf("bloom filter data too short")
	}
	return &Filter{
		size:      int(binary.BigEndian.Uint64(data[0:8])),
		hashCount: int(binary.BigEndian.Uint64(data[8:16])),
		count:     int(binary.BigEndian.Uint64(data[16:24])),
		bits:      data[24:],
	}, nil
}

// Save writes the serialized filter to path.
func (f *Filter) Save(path string) error {
	return os.WriteFile(path, f.Serialize(), 0644)
}

// Load reads a filter previously written by Save.
func Load(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load bloom filter: %w", err)
	}
	return Deserialize(data)
}

// LoadMmap loads a filter via zero-copy mmap, returning a cleanup func
// that must be called once the filter is no longer needed.
func LoadMmap(path string) (*Filter, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open bloom filter: %w", err)
	}
	data, err := blockstore.MmapFile(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	f.Close()

	filter, err := Deserialize(data)
	if err != nil {
		blockstore.MunmapFile(data)
		return nil, nil, err
	}
	return filter, func() { blockstore.MunmapFile(data) }, nil
}

// Count returns the number of keys added.
func (f *Filter) Count() int { return f.count }
