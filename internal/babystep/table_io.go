package babystep

import (
	"encoding/binary"
	"fmt"
	"os"

	"btc_bsgs/internal/field"
)

// tableMagic identifies a serialized baby-step table on disk: ASCII
// "BSTB" read as a big-endian u32.
const tableMagic uint32 = 0x42535442

// Save writes the table's m and its m X coordinates (32 bytes each,
// index 0 a zero placeholder for the point at infinity); the bloom
// filter and probe index are rebuilt from xs on Load rather than
// serialized, since they're cheap to recompute and easy to get
// out of sync with a hand-maintained format.
func (t *Table) Save(path string) error {
	buf := make([]byte, 0, 8+t.m*32)
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], tableMagic)
	binary.BigEndian.PutUint32(header[4:8], uint32(t.m))
	buf = append(buf, header[:]...)

	for i := 0; i < t.m; i++ {
		b := t.xs[i].ToBytes()
		buf = append(buf, b[:]...)
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("babystep: writing table: %w", err)
	}
	return nil
}

// Load reads a table previously written by Save and rebuilds its bloom
// filter and probe index.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("babystep: reading table: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("babystep: truncated table header")
	}
	magic := binary.BigEndian.Uint32(data[0:4])
	if magic != tableMagic {
		return nil, fmt.Errorf("babystep: bad magic %08x", magic)
	}
	m := int(binary.BigEndian.Uint32(data[4:8]))
	if m <= 0 {
		return nil, fmt.Errorf("babystep: invalid m %d in table file", m)
	}

	expect := 8 + m*32
	if len(data) != expect {
		return nil, fmt.Errorf("babystep: table size mismatch: got %d bytes, want %d", len(data), expect)
	}

	t := &Table{m: m, xs: make([]field.Fp, m)}
	off := 8
	for i := 0; i < m; i++ {
		x, err := field.FromBytesFp(data[off : off+32])
		if err != nil {
			return nil, fmt.Errorf("babystep: decoding x[%d]: %w", i, err)
		}
		t.xs[i] = x
		off += 32
	}

	t.buildIndex()
	return t, nil
}
