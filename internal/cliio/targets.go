// Package cliio implements the command-line input surface of §6: parsing
// a target file into engine-ready targets, parsing a search range from
// either a bit count or a literal hex pair, and the process exit codes the
// solver binary reports.
package cliio

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"btc_bsgs/internal/target"

	"github.com/btcsuite/btcd/btcutil"
)

// ParseTargetFile reads one target per line from path: a hex-encoded
// public key (66 or 130 hex chars), a Hash160 (40 hex chars), or an
// address string whose decoding is delegated to btcutil. Blank lines and
// lines starting with '#' are skipped.
func ParseTargetFile(path string) ([]target.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cliio: opening target file: %w", err)
	}
	defer f.Close()
	return ParseTargets(f)
}

// ParseTargets reads targets from r, in the same line format as
// ParseTargetFile.
func ParseTargets(r io.Reader) ([]target.Target, error) {
	var out []target.Target
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		t, err := ParseTargetLine(text)
		if err != nil {
			return nil, fmt.Errorf("cliio: line %d: %w", line, err)
		}
		out = append(out, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cliio: reading target file: %w", err)
	}
	return out, nil
}

// ParseTargetLine parses a single target in one of the three accepted
// forms: hex public key, hex Hash160, or an address string.
func ParseTargetLine(text string) (target.Target, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")

	if isHex(trimmed) {
		switch len(trimmed) {
		case 66, 130:
			b, err := hex.DecodeString(trimmed)
			if err != nil {
				return target.Target{}, fmt.Errorf("decoding public key hex: %w", err)
			}
			return target.NewFromPubKeyBytes(b, text)
		case 40:
			b, err := hex.DecodeString(trimmed)
			if err != nil {
				return target.Target{}, fmt.Errorf("decoding hash160 hex: %w", err)
			}
			return target.NewFromHash160(b, text)
		}
	}

	return parseAddress(text)
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// parseAddress decodes a Base58Check or Bech32 address into its Hash160,
// delegating the encoding details entirely to btcutil. The mainnet param
// set is used since the puzzle targets are mainnet addresses; callers
// needing another network should parse the target file themselves.
func parseAddress(addr string) (target.Target, error) {
	decoded, err := btcutil.DecodeAddress(addr, defaultParams)
	if err != nil {
		return target.Target{}, fmt.Errorf("decoding address %q: %w", addr, err)
	}

	hasher, ok := decoded.(interface{ Hash160() *[20]byte })
	if !ok {
		return target.Target{}, fmt.Errorf("address %q does not carry a hash160 (unsupported script type)", addr)
	}
	h := hasher.Hash160()
	return target.NewFromHash160(h[:], addr)
}
