// Package domain defines the core registry types shared across layers.
package domain

import (
	"fmt"
	"strings"
)

// AddressLength is the number of hex digits in a wallet address.
const AddressLength = 40

// ZeroAddress is the all-zero wallet address. It is never a valid
// registration target.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// Address identifies a wallet in canonical form: "0x" followed by 40
// lowercase hex digits.
type Address string

// ParseAddress normalizes input to a canonical address.
func ParseAddress(input string) (Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("address is required")
	}
	if len(input) != AddressLength+2 || (input[:2] != "0x" && input[:2] != "0X") {
		return "", fmt.Errorf("address must be a 0x-prefixed %d-digit hex string", AddressLength)
	}

	var builder strings.Builder
	builder.Grow(len(input))
	builder.WriteString("0x")
	for i := 2; i < len(input); i++ {
		ch := input[i]
		if ch >= 'A' && ch <= 'F' {
			ch = ch - 'A' + 'a'
		}
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return "", fmt.Errorf("address must be a 0x-prefixed %d-digit hex string", AddressLength)
		}
		builder.WriteByte(ch)
	}
	return Address(builder.String()), nil
}

// IsZero reports whether the address is empty or all zeros.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// String returns the canonical string form.
func (a Address) String() string {
	return string(a)
}
