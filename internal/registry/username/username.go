// Package username validates registry usernames against the naming policy.
package username

import (
	"errors"
	"strings"
)

// MaxLength caps username length in bytes; the charset is ASCII only.
const MaxLength = 30

var (
	// ErrEmpty indicates a missing username.
	ErrEmpty = errors.New("Username cannot be empty")
	// ErrTooLong indicates a username over the length cap.
	ErrTooLong = errors.New("Username max length is 30 characters!")
	// ErrCharset indicates a character outside the allowed set.
	ErrCharset = errors.New("Username must only contain lowercase letters a-z, numbers 0-9, and underscores (_)")
	// ErrReserved indicates a reserved name or reserved substring.
	ErrReserved = errors.New("Username is reserved or contains a reserved prefix")
)

// reservedNames are rejected on exact match.
var reservedNames = map[string]struct{}{
	"admin":    {},
	"system":   {},
	"linktrue": {},
}

// reservedSubstrings are rejected anywhere inside a candidate.
var reservedSubstrings = []string{
	"link_true",
	"link__true",
}

// Validate checks a candidate username. Rules are applied in order and
// the first failure wins: non-empty, length, charset, reserved policy.
func Validate(name string) error {
	if name == "" {
		return ErrEmpty
	}
	if len(name) > MaxLength {
		return ErrTooLong
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch >= 'a' && ch <= 'z' {
			continue
		}
		if ch >= '0' && ch <= '9' {
			continue
		}
		if ch == '_' {
			continue
		}
		return ErrCharset
	}
	if _, ok := reservedNames[name]; ok {
		return ErrReserved
	}
	for _, sub := range reservedSubstrings {
		if strings.Contains(name, sub) {
			return ErrReserved
		}
	}
	return nil
}
