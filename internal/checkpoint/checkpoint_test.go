package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleState() State {
	var lo, hi [32]byte
	lo[31] = 1
	hi[31] = 0xFF

	var h160 [20]byte
	for i := range h160 {
		h160[i] = byte(i)
	}

	var priv [32]byte
	priv[31] = 0x42

	return State{
		Mode:        1,
		Compression: 0,
		M:           1024,
		K:           1,
		RangeLo:     lo,
		RangeHi:     hi,
		Targets: []TargetRecord{
			{Tag: TagHash160, Hash160: h160},
		},
		NextGiantStep: 512,
		KeysChecked:   524288,
		ElapsedMs:     12345,
		Results: []ResultRecord{
			{PrivateKey: priv, TargetHash: h160, FoundAtMs: 9999},
		},
	}
}

func TestP13EncodeDecodeRoundTrip(t *testing.T) {
	s := sampleState()
	data, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.M != s.M || got.K != s.K || got.NextGiantStep != s.NextGiantStep ||
		got.KeysChecked != s.KeysChecked || got.ElapsedMs != s.ElapsedMs {
		t.Fatalf("scalar fields did not round-trip: got %+v, want %+v", got, s)
	}
	if got.RangeLo != s.RangeLo || got.RangeHi != s.RangeHi {
		t.Fatal("range bounds did not round-trip")
	}
	if len(got.Targets) != 1 || got.Targets[0].Hash160 != s.Targets[0].Hash160 {
		t.Fatal("targets did not round-trip")
	}
	if len(got.Results) != 1 || got.Results[0].PrivateKey != s.Results[0].PrivateKey {
		t.Fatal("results did not round-trip")
	}
}

func TestP13SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.ckpt")

	s := sampleState()
	if err := Save(path, s); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.M != s.M || got.KeysChecked != s.KeysChecked {
		t.Fatal("state did not survive a save/load cycle")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "run.ckpt" {
			t.Fatalf("leftover temp file after atomic rename: %s", e.Name())
		}
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	s := sampleState()
	data, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	data[0] ^= 0xFF

	if _, err := Decode(data); err == nil {
		t.Fatal("expected decode failure on corrupted magic (CRC should also fail)")
	}
}

func TestDecodeRejectsCorruptedBody(t *testing.T) {
	s := sampleState()
	data, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	data[10] ^= 0xFF

	if _, err := Decode(data); err == nil {
		t.Fatal("expected CRC-32 mismatch on corrupted body")
	}
}

func TestEncodeHandlesNoResults(t *testing.T) {
	s := sampleState()
	s.Results = nil
	data, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Results) != 0 {
		t.Fatal("expected zero results")
	}
}
