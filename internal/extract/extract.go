// Package extract turns uploaded documents into clean plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNoText marks uploads whose extracted text is too short to index.
	ErrNoText = errors.New("document has no usable text")
	// ErrUnsupportedType marks uploads with an extension we cannot read.
	ErrUnsupportedType = errors.New("unsupported document type")
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Text extracts plain text from data based on the file extension of name.
// minChars is the shortest extraction considered usable; anything below it
// is ErrNoText.
func Text(name string, data []byte, minChars int) (string, error) {
	var text string
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err = pdfText(data)
		if err != nil {
			return "", err
		}
	case ".txt", ".md":
		text = Clean(string(data))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(name))
	}
	if len(text) < minChars {
		return "", fmt.Errorf("%w: got %d characters, need at least %d", ErrNoText, len(text), minChars)
	}
	return text, nil
}

// pdfText joins the plain text of every page. Pages that fail to extract
// are skipped rather than failing the whole document.
func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := pageText(p)
		if err != nil || content == "" {
			continue
		}
		pages = append(pages, content)
	}
	return Clean(strings.Join(pages, " ")), nil
}

// pageText isolates the panics the pdf library throws on malformed
// content streams so one bad page cannot take down the upload.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page extraction failed: %v", r)
		}
	}()
	return p.GetPlainText(nil)
}

// Clean collapses all runs of whitespace to single spaces and trims the
// ends. Chunking and BM25 tokenization both assume this normal form.
func Clean(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
