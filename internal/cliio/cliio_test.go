package cliio

import (
	"math/big"
	"strings"
	"testing"

	"btc_bsgs/internal/target"
)

func TestParseTargetLinePubKeyCompressed(t *testing.T) {
	line := "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	tgt, err := ParseTargetLine(line)
	if err != nil {
		t.Fatalf("parsing compressed pubkey: %v", err)
	}
	if tgt.Kind != target.KindPubKey {
		t.Fatalf("expected KindPubKey, got %v", tgt.Kind)
	}
}

func TestParseTargetLinePubKeyUncompressed(t *testing.T) {
	line := "0479be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798" +
		"483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"
	tgt, err := ParseTargetLine(line)
	if err != nil {
		t.Fatalf("parsing uncompressed pubkey: %v", err)
	}
	if tgt.Kind != target.KindPubKey {
		t.Fatalf("expected KindPubKey, got %v", tgt.Kind)
	}
}

func TestParseTargetLineHash160(t *testing.T) {
	line := "751e76e8199196d454941c45d1b3a323f1433bd6"
	tgt, err := ParseTargetLine(line)
	if err != nil {
		t.Fatalf("parsing hash160: %v", err)
	}
	if tgt.Kind != target.KindHash160 {
		t.Fatalf("expected KindHash160, got %v", tgt.Kind)
	}
}

func TestParseTargetLineAddress(t *testing.T) {
	line := "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	tgt, err := ParseTargetLine(line)
	if err != nil {
		t.Fatalf("parsing address: %v", err)
	}
	if tgt.Kind != target.KindHash160 {
		t.Fatalf("expected KindHash160 for a P2PKH address, got %v", tgt.Kind)
	}
	if tgt.Label != line {
		t.Fatalf("expected label to preserve the original address text")
	}
}

func TestParseTargetLineRejectsGarbage(t *testing.T) {
	if _, err := ParseTargetLine("not-a-target-at-all!!"); err == nil {
		t.Fatalf("expected an error for unparseable input")
	}
}

func TestParseTargetsSkipsBlankAndComment(t *testing.T) {
	input := "# a comment\n\n751e76e8199196d454941c45d1b3a323f1433bd6\n"
	targets, err := ParseTargets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parsing targets: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
}

func TestParseRangeBitCount(t *testing.T) {
	lo, hi, err := ParseRange("66")
	if err != nil {
		t.Fatalf("parsing bit count range: %v", err)
	}
	wantLo := new(big.Int).Lsh(big.NewInt(1), 65)
	wantHi := new(big.Int).Lsh(big.NewInt(1), 66)
	wantHi.Sub(wantHi, big.NewInt(1))
	if lo.Cmp(wantLo) != 0 || hi.Cmp(wantHi) != 0 {
		t.Fatalf("expected [%s,%s], got [%s,%s]", wantLo, wantHi, lo, hi)
	}
}

func TestParseRangeBitCountOne(t *testing.T) {
	lo, hi, err := ParseRange("1")
	if err != nil {
		t.Fatalf("parsing bit count 1: %v", err)
	}
	if lo.Cmp(big.NewInt(1)) != 0 || hi.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected [1,1], got [%s,%s]", lo, hi)
	}
}

func TestParseRangeLiteral(t *testing.T) {
	lo, hi, err := ParseRange("0x10:0xff")
	if err != nil {
		t.Fatalf("parsing literal range: %v", err)
	}
	if lo.Cmp(big.NewInt(0x10)) != 0 || hi.Cmp(big.NewInt(0xff)) != 0 {
		t.Fatalf("expected [16,255], got [%s,%s]", lo, hi)
	}
}

func TestParseRangeLiteralRejectsLoGreaterThanHi(t *testing.T) {
	if _, _, err := ParseRange("0xff:0x10"); err == nil {
		t.Fatalf("expected error when lo > hi")
	}
}

func TestParseRangeRejectsBitCountOutOfBounds(t *testing.T) {
	if _, _, err := ParseRange("0"); err == nil {
		t.Fatalf("expected error for bit count 0")
	}
	if _, _, err := ParseRange("257"); err == nil {
		t.Fatalf("expected error for bit count 257")
	}
}
