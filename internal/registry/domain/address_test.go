package domain

import (
	"strings"
	"testing"
)

func TestParseAddressCanonicalizes(t *testing.T) {
	tests := []struct {
		input string
		want  Address
	}{
		{"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{"0Xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"},
		{"  0x1234567890abcdef1234567890abcdef12345678  ", "0x1234567890abcdef1234567890abcdef12345678"},
		{"0x0000000000000000000000000000000000000000", ZeroAddress},
	}
	for _, tc := range tests {
		got, err := ParseAddress(tc.input)
		if err != nil {
			t.Fatalf("ParseAddress(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAddress(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseAddressRejectsMalformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"deadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
		"0xdeadbeef",
		"0x" + strings.Repeat("g", AddressLength),
		"0x" + strings.Repeat("a", AddressLength+1),
		"1x" + strings.Repeat("a", AddressLength),
	}
	for _, input := range inputs {
		if _, err := ParseAddress(input); err == nil {
			t.Fatalf("ParseAddress(%q) accepted malformed input", input)
		}
	}
}

func TestAddressIsZero(t *testing.T) {
	if !ZeroAddress.IsZero() {
		t.Fatal("zero address should be zero")
	}
	if !Address("").IsZero() {
		t.Fatal("empty address should be zero")
	}
	if Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").IsZero() {
		t.Fatal("non-zero address reported zero")
	}
}

func TestFlatten(t *testing.T) {
	items := []Item{
		{Key: "github", Value: "https://github.com/alice"},
		{Key: "blog", Value: "https://alice.example"},
	}
	got := Flatten(items, "alice")
	want := []string{"github", "https://github.com/alice", "blog", "https://alice.example", "alice"}
	if len(got) != len(want) {
		t.Fatalf("flatten = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("flatten[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// No items leaves a single username slot; an unclaimed profile
	// flattens to one empty string.
	if got := Flatten(nil, "alice"); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("flatten without items = %v", got)
	}
	if got := Flatten(nil, ""); len(got) != 1 || got[0] != "" {
		t.Fatalf("flatten of empty profile = %v", got)
	}
}
