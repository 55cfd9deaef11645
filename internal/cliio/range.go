package cliio

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseRange accepts either a bare bit count ("66") expanding to
// [2^(n-1), 2^n-1], or a literal "lo:hi" hex pair (0x prefix optional,
// case-insensitive, leading zeros optional). It rejects lo > hi.
func ParseRange(s string) (lo, hi *big.Int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, fmt.Errorf("cliio: empty range")
	}

	if strings.Contains(s, ":") {
		return parseLiteralRange(s)
	}
	return parseBitCountRange(s)
}

func parseBitCountRange(s string) (lo, hi *big.Int, err error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return nil, nil, fmt.Errorf("cliio: invalid bit count %q: %w", s, err)
	}
	if n < 1 || n > 256 {
		return nil, nil, fmt.Errorf("cliio: bit count %d out of range [1,256]", n)
	}

	lo = new(big.Int).Lsh(big.NewInt(1), uint(n-1))
	hi = new(big.Int).Lsh(big.NewInt(1), uint(n))
	hi.Sub(hi, big.NewInt(1))
	if n == 1 {
		lo = big.NewInt(1)
	}
	return lo, hi, nil
}

func parseLiteralRange(s string) (lo, hi *big.Int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("cliio: range %q must be lo:hi", s)
	}

	lo, err = parseHexInt(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("cliio: range lo: %w", err)
	}
	hi, err = parseHexInt(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("cliio: range hi: %w", err)
	}
	if lo.Cmp(hi) > 0 {
		return nil, nil, fmt.Errorf("cliio: range lo %s > hi %s", lo, hi)
	}
	return lo, hi, nil
}

func parseHexInt(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("empty hex value")
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex value %q", s)
	}
	return v, nil
}
