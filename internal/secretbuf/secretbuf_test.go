package secretbuf

import "testing"

func TestWipeZeroesBuffer(t *testing.T) {
	b := NewFromBytes([]byte{1, 2, 3, 4, 5})
	b.Wipe()
	for i, v := range b.Bytes() {
		if v != 0 {
			t.Fatalf("byte %d not wiped: got %d", i, v)
		}
	}
}

func TestWipeIsIdempotent(t *testing.T) {
	b := NewFromBytes([]byte{9, 9, 9})
	b.Wipe()
	b.Wipe()
	for _, v := range b.Bytes() {
		if v != 0 {
			t.Fatal("expected all-zero after repeated wipe")
		}
	}
}

func TestNewIsZeroed(t *testing.T) {
	b := New(32)
	for _, v := range b.Bytes() {
		if v != 0 {
			t.Fatal("expected fresh buffer to be zeroed")
		}
	}
}
