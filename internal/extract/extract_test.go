package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestCleanCollapsesWhitespace(t *testing.T) {
	got := Clean("  hello\n\tworld \r\n twice  ")
	if got != "hello world twice" {
		t.Fatalf("Clean = %q", got)
	}
}

func TestTextPlainFile(t *testing.T) {
	body := "The quick brown fox jumps over the lazy dog.\nAgain and again."
	got, err := Text("notes.txt", []byte(body), 10)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if strings.Contains(got, "\n") {
		t.Fatalf("newlines survived cleaning: %q", got)
	}
	if !strings.Contains(got, "quick brown fox") {
		t.Fatalf("content lost: %q", got)
	}
}

func TestTextBelowMinimumIsErrNoText(t *testing.T) {
	_, err := Text("tiny.txt", []byte("too short"), 40)
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("err = %v, want ErrNoText", err)
	}
}

func TestTextUnsupportedExtension(t *testing.T) {
	_, err := Text("slides.pptx", []byte("whatever"), 1)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestTextMarkdownTreatedAsPlain(t *testing.T) {
	got, err := Text("README.md", []byte("# Title\n\nSome body text here."), 10)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "# Title Some body text here." {
		t.Fatalf("got %q", got)
	}
}

func TestTextMalformedPDF(t *testing.T) {
	_, err := Text("broken.pdf", []byte("not a pdf at all"), 1)
	if err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}
