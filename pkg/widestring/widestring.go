// Package widestring converts Go strings to the null-terminated UTF-16
// buffers expected by wide-character platform APIs.
package widestring

import (
	"unicode/utf16"
	"unicode/utf8"
)

// WideString is a null-terminated UTF-16 code-unit buffer. A nil WideString
// stands for an absent argument.
type WideString []uint16

// New encodes s as UTF-16 and appends a single terminating zero unit.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func New(s string) WideString {
	out := make([]uint16, 0, utf8.RuneCountInString(s)+1)
	for _, r := range s {
		out = utf16.AppendRune(out, r)
	}
	return append(out, 0)
}

// Optional returns nil for an empty string and New(s) otherwise.
func Optional(s string) WideString {
	if s == "" {
		return nil
	}
	return New(s)
}

// Ptr returns a pointer to the first code unit, or nil when w is absent.
func (w WideString) Ptr() *uint16 {
	if len(w) == 0 {
		return nil
	}
	return &w[0]
}

// Len reports the number of code units before the terminator.
func (w WideString) Len() int {
	for i, u := range w {
		if u == 0 {
			return i
		}
	}
	return len(w)
}

// IsAbsent reports whether w carries no value.
func (w WideString) IsAbsent() bool { return w == nil }

// String decodes the units up to the first zero.
func (w WideString) String() string {
	return string(utf16.Decode(w[:w.Len()]))
}
