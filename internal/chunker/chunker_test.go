package chunker

import (
	"errors"
	"strings"
	"testing"
)

func sampleText(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	return b.String()
}

func TestSplitWindowBoundaries(t *testing.T) {
	text := sampleText(1200)
	chunks, err := Split(text, 500, 100)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	want := []string{text[0:500], text[400:900], text[800:1200], text[1100:1200]}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d mismatch: got %q... want %q...", i, chunks[i][:20], want[i][:20])
		}
	}
}

func TestSplitTrailingRemainder(t *testing.T) {
	text := "0123456789"
	chunks, err := Split(text, 4, 1)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	want := []string{"0123", "3456", "6789", "9"}
	if len(chunks) != len(want) {
		t.Fatalf("got %v, want %v", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplitExactFit(t *testing.T) {
	chunks, err := Split("abcde", 5, 0)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "abcde" {
		t.Fatalf("got %v", chunks)
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := sampleText(3333)
	a, err := Split(text, 250, 50)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	b, err := Split(text, 250, 50)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitEmptyText(t *testing.T) {
	chunks, err := Split("", 500, 100)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("want no chunks, got %d", len(chunks))
	}
}

func TestSplitRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Split("some text", tc.size, tc.overlap); !errors.Is(err, ErrInvalidChunking) {
				t.Fatalf("want ErrInvalidChunking, got %v", err)
			}
		})
	}
}

func TestSplitCoversWholeText(t *testing.T) {
	const size, overlap = 120, 30
	text := sampleText(777)
	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	covered := make([]bool, len(text))
	start := 0
	for i, c := range chunks {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		if c != text[start:end] {
			t.Fatalf("chunk %d is not the window [%d:%d)", i, start, end)
		}
		for j := start; j < end; j++ {
			covered[j] = true
		}
		start = end - overlap
	}
	for i, ok := range covered {
		if !ok {
			t.Fatalf("position %d not covered by any chunk", i)
		}
	}
}
