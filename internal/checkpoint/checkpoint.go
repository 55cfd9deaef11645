// Package checkpoint implements the binary snapshot layout of §6: a
// self-describing header, the target list, progress counters, any results
// found so far, and a CRC-32 trailer over everything preceding it. Writes
// go through a temp file and an atomic rename so a crash mid-write never
// leaves a half-written checkpoint in place of a good one.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
)

// Magic identifies a checkpoint file: ASCII "KHCK" read as a big-endian u32.
const Magic uint32 = 0x4B48434B

// CurrentVersion is written to new checkpoints; Load rejects newer
// versions it doesn't understand but accepts this and all older ones it
// knows how to decode.
const CurrentVersion uint16 = 1

// Target tag values, per §6's "1-byte tag per target".
const (
	TagHash160 uint8 = iota
	TagPubKeyCompressed
)

// TargetRecord is one entry of the checkpoint's target list.
type TargetRecord struct {
	Tag     uint8
	Hash160 [20]byte // valid when Tag == TagHash160
	PubKey  [33]byte // valid when Tag == TagPubKeyCompressed
}

func (t TargetRecord) encode(buf *bytes.Buffer) error {
	buf.WriteByte(t.Tag)
	switch t.Tag {
	case TagHash160:
		buf.Write(t.Hash160[:])
	case TagPubKeyCompressed:
		buf.Write(t.PubKey[:])
	default:
		return fmt.Errorf("checkpoint: unknown target tag %d", t.Tag)
	}
	return nil
}

func decodeTarget(r *bytes.Reader) (TargetRecord, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return TargetRecord{}, fmt.Errorf("checkpoint: reading target tag: %w", err)
	}
	var t TargetRecord
	t.Tag = tagByte
	switch t.Tag {
	case TagHash160:
		if _, err := readFull(r, t.Hash160[:]); err != nil {
			return TargetRecord{}, err
		}
	case TagPubKeyCompressed:
		if _, err := readFull(r, t.PubKey[:]); err != nil {
			return TargetRecord{}, err
		}
	default:
		return TargetRecord{}, fmt.Errorf("checkpoint: unknown target tag %d", t.Tag)
	}
	return t, nil
}

// ResultRecord is one published BSGS result as stored on disk.
type ResultRecord struct {
	PrivateKey [32]byte
	TargetHash [20]byte
	FoundAtMs  uint64
}

// State is the full decoded contents of a checkpoint file.
type State struct {
	Version     uint16
	Mode        uint8
	Compression uint8
	M           uint64
	K           uint32
	RangeLo     [32]byte
	RangeHi     [32]byte
	Targets     []TargetRecord

	NextGiantStep uint64
	KeysChecked   uint64
	ElapsedMs     uint64

	Results []ResultRecord
}

// Encode serializes s into the on-disk layout, including the CRC-32
// trailer over everything preceding it.
func Encode(s State) ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, Magic); err != nil {
		return nil, err
	}
	version := s.Version
	if version == 0 {
		version = CurrentVersion
	}
	binary.Write(&buf, binary.BigEndian, version)
	buf.WriteByte(s.Mode)
	buf.WriteByte(s.Compression)
	binary.Write(&buf, binary.BigEndian, s.M)
	binary.Write(&buf, binary.BigEndian, s.K)
	buf.Write(s.RangeLo[:])
	buf.Write(s.RangeHi[:])
	binary.Write(&buf, binary.BigEndian, uint32(len(s.Targets)))

	for _, t := range s.Targets {
		if err := t.encode(&buf); err != nil {
			return nil, err
		}
	}

	binary.Write(&buf, binary.BigEndian, s.NextGiantStep)
	binary.Write(&buf, binary.BigEndian, s.KeysChecked)
	binary.Write(&buf, binary.BigEndian, s.ElapsedMs)
	binary.Write(&buf, binary.BigEndian, uint32(len(s.Results)))

	for _, r := range s.Results {
		buf.Write(r.PrivateKey[:])
		buf.Write(r.TargetHash[:])
		binary.Write(&buf, binary.BigEndian, r.FoundAtMs)
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())
	binary.Write(&buf, binary.BigEndian, sum)

	return buf.Bytes(), nil
}

// Decode parses the on-disk layout produced by Encode, validating the
// magic, the CRC-32 trailer, and the version.
func Decode(data []byte) (State, error) {
	if len(data) < 4 {
		return State{}, fmt.Errorf("checkpoint: truncated header")
	}

	trailerStart := len(data) - 4
	wantSum := binary.BigEndian.Uint32(data[trailerStart:])
	gotSum := crc32.ChecksumIEEE(data[:trailerStart])
	if wantSum != gotSum {
		return State{}, fmt.Errorf("checkpoint: CRC-32 mismatch, file corrupt")
	}

	r := bytes.NewReader(data[:trailerStart])

	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return State{}, fmt.Errorf("checkpoint: reading magic: %w", err)
	}
	if magic != Magic {
		return State{}, fmt.Errorf("checkpoint: bad magic 0x%08X", magic)
	}

	var s State
	if err := binary.Read(r, binary.BigEndian, &s.Version); err != nil {
		return State{}, err
	}
	if s.Version > CurrentVersion {
		return State{}, fmt.Errorf("checkpoint: unsupported version %d", s.Version)
	}

	modeByte, err := r.ReadByte()
	if err != nil {
		return State{}, err
	}
	s.Mode = modeByte

	compByte, err := r.ReadByte()
	if err != nil {
		return State{}, err
	}
	s.Compression = compByte

	if err := binary.Read(r, binary.BigEndian, &s.M); err != nil {
		return State{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &s.K); err != nil {
		return State{}, err
	}
	if _, err := readFull(r, s.RangeLo[:]); err != nil {
		return State{}, err
	}
	if _, err := readFull(r, s.RangeHi[:]); err != nil {
		return State{}, err
	}

	var targetCount uint32
	if err := binary.Read(r, binary.BigEndian, &targetCount); err != nil {
		return State{}, err
	}
	s.Targets = make([]TargetRecord, 0, targetCount)
	for i := uint32(0); i < targetCount; i++ {
		t, err := decodeTarget(r)
		if err != nil {
			return State{}, err
		}
		s.Targets = append(s.Targets, t)
	}

	if err := binary.Read(r, binary.BigEndian, &s.NextGiantStep); err != nil {
		return State{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &s.KeysChecked); err != nil {
		return State{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &s.ElapsedMs); err != nil {
		return State{}, err
	}

	var resultCount uint32
	if err := binary.Read(r, binary.BigEndian, &resultCount); err != nil {
		return State{}, err
	}
	s.Results = make([]ResultRecord, 0, resultCount)
	for i := uint32(0); i < resultCount; i++ {
		var rec ResultRecord
		if _, err := readFull(r, rec.PrivateKey[:]); err != nil {
			return State{}, err
		}
		if _, err := readFull(r, rec.TargetHash[:]); err != nil {
			return State{}, err
		}
		if err := binary.Read(r, binary.BigEndian, &rec.FoundAtMs); err != nil {
			return State{}, err
		}
		s.Results = append(s.Results, rec)
	}

	return s, nil
}

func readFull(r *bytes.Reader, dst []byte) (int, error) {
	n, err := io.ReadFull(r, dst)
	if err != nil {
		return n, fmt.Errorf("checkpoint: short read: %w", err)
	}
	return n, nil
}

// Save writes s to path via a temp file in the same directory followed by
// an atomic rename, so a reader never observes a partially written file
// and a crash mid-write leaves the previous checkpoint intact (§5's
// "exclusive ownership by a single serialiser thread; atomic rename on
// write").
func Save(path string, s State) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("checkpoint: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: renaming into place: %w", err)
	}
	return nil
}

// Load reads and decodes the checkpoint at path.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("checkpoint: reading %s: %w", path, err)
	}
	return Decode(data)
}
