// Package chunker splits document text into fixed-size overlapping windows.
package chunker

import (
	"errors"
	"fmt"
)

var ErrInvalidChunking = errors.New("invalid chunking parameters")

// Split cuts text into windows of at most size characters. Consecutive
// windows share overlap characters; the final window may be shorter. The
// function is pure: same inputs, same output.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidChunking, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidChunking, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidChunking, overlap, size)
	}
	if text == "" {
		return nil, nil
	}

	var chunks []string
	start := 0
	n := len(text)
	for start < n {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, text[start:end])

		// stop once the window no longer advances
		next := end - overlap
		if next <= start {
			break
		}
		start = next
	}
	return chunks, nil
}
