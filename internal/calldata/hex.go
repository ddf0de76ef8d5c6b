// Package calldata turns user input into the hex the simulator expects:
// ABI-encoded calls, even-length calldata and 256-bit stack literals.
package calldata

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// NormalizeHex returns s as lowercase 0x-prefixed hex with an even number
// of nibbles, left-padding with a zero when needed. Empty input stays empty.
func NormalizeHex(s string) (string, error) {
	digits := strip0x(strings.TrimSpace(s))
	if digits == "" {
		return "", nil
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	if _, err := hexutil.Decode("0x" + digits); err != nil {
		return "", fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return "0x" + strings.ToLower(digits), nil
}

// maxLiteralNibbles is the widest value a single PUSH can carry.
const maxLiteralNibbles = 64

// NormalizeLiteral accepts a decimal or 0x-prefixed hex number that fits in
// 256 bits and returns it as a hex literal. Hex input keeps its digits;
// decimal input is converted to minimal hex.
func NormalizeLiteral(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty literal")
	}

	if has0x(s) {
		digits := s[2:]
		if digits == "" || len(digits) > maxLiteralNibbles {
			return "", fmt.Errorf("hex literal %q must have 1 to %d digits", s, maxLiteralNibbles)
		}
		for i := 0; i < len(digits); i++ {
			if !isHexDigit(digits[i]) {
				return "", fmt.Errorf("invalid hex literal %q", s)
			}
		}
		return "0x" + strings.ToLower(digits), nil
	}

	v, err := uint256.FromDecimal(s)
	if err != nil {
		return "", fmt.Errorf("invalid literal %q: %w", s, err)
	}
	return v.Hex(), nil
}

// NormalizeLiterals applies NormalizeLiteral to each element.
func NormalizeLiterals(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, s := range in {
		lit, err := NormalizeLiteral(s)
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
	}
	return out, nil
}

func has0x(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func strip0x(s string) string {
	if has0x(s) {
		return s[2:]
	}
	return s
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
