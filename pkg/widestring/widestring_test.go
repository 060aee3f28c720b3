package widestring

import (
	"slices"
	"testing"
	"unicode/utf16"
)

func TestNewAppendsSingleTerminator(t *testing.T) {
	cases := []string{"", "agent", "http://example.com/", "héllo wörld", "日本語", "emoji 😀 pair", "a\tb\r\n"}

	for _, in := range cases {
		w := New(in)
		if len(w) == 0 || w[len(w)-1] != 0 {
			t.Fatalf("New(%q) missing terminator: %v", in, w)
		}
		if len(w) > 1 && w[len(w)-2] == 0 && in[len(in)-1] != 0 {
			t.Fatalf("New(%q) has more than one trailing zero: %v", in, w)
		}
		want := utf16.Encode([]rune(in))
		if !slices.Equal([]uint16(w[:len(w)-1]), want) {
			t.Fatalf("New(%q) prefix = %v, want %v", in, w[:len(w)-1], want)
		}
		if got := w.String(); got != in {
			t.Fatalf("round trip %q -> %q", in, got)
		}
		if w.Len() != len(want) {
			t.Fatalf("Len(%q) = %d, want %d", in, w.Len(), len(want))
		}
	}
}

func TestNewSurrogatePair(t *testing.T) {
	w := New("😀")
	if len(w) != 3 {
		t.Fatalf("expected surrogate pair plus terminator, got %v", w)
	}
	if !utf16.IsSurrogate(rune(w[0])) || !utf16.IsSurrogate(rune(w[1])) {
		t.Fatalf("expected surrogates, got %v", w)
	}
}

func TestNewReplacesInvalidUTF8(t *testing.T) {
	w := New("a\xffb")
	want := []uint16{'a', 0xFFFD, 'b', 0}
	if !slices.Equal([]uint16(w), want) {
		t.Fatalf("New invalid = %v, want %v", w, want)
	}
}

func TestOptional(t *testing.T) {
	if w := Optional(""); !w.IsAbsent() || w.Ptr() != nil {
		t.Fatalf("expected absent value, got %v", w)
	}
	w := Optional("proxy:8080")
	if w.IsAbsent() || w.Ptr() == nil {
		t.Fatalf("expected present value")
	}
	if *w.Ptr() != 'p' {
		t.Fatalf("Ptr points at %d", *w.Ptr())
	}
}
