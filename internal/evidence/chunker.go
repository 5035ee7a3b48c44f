package evidence

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultWindowSize is the passage window size in runes
	DefaultWindowSize = 800
	// DefaultOverlap is the overlap between adjacent windows in runes.
	// Overlapping windows bound recall loss at chunk boundaries.
	DefaultOverlap = 200

	minPassageLength = 40
)

var spaceRegex = regexp.MustCompile(`\s+`)

// SplitPassages splits document content into fixed-size overlapping windows,
// snapped back to the nearest word boundary so no window ends mid-word.
func SplitPassages(content string) []string {
	return SplitPassagesWindow(content, DefaultWindowSize, DefaultOverlap)
}

// SplitPassagesWindow splits content with an explicit window size and overlap.
func SplitPassagesWindow(content string, windowSize, overlap int) []string {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if overlap < 0 || overlap >= windowSize {
		overlap = windowSize / 4
	}

	text := cleanText(content)
	runes := []rune(text)

	if len(runes) == 0 {
		return nil
	}

	if len(runes) <= windowSize {
		if len(runes) < minPassageLength {
			return nil
		}
		return []string{text}
	}

	var passages []string
	step := windowSize - overlap

	for start := 0; start < len(runes); start += step {
		end := start + windowSize
		if end > len(runes) {
			end = len(runes)
		}

		// Snap the window end back to a word boundary
		cut := end
		if end < len(runes) {
			for cut > start && !unicode.IsSpace(runes[cut-1]) {
				cut--
			}
			if cut == start {
				cut = end // single unbroken token, cut mid-word
			}
		}

		passage := strings.TrimSpace(string(runes[start:cut]))
		if utf8.RuneCountInString(passage) >= minPassageLength {
			passages = append(passages, passage)
		}

		if end == len(runes) {
			break
		}
	}

	return passages
}

// cleanText normalizes line endings and collapses whitespace
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
