package extractor

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"lawqa/internal/domain"
)

// ErrNotUTF8 is returned when the source file is not valid UTF-8.
var ErrNotUTF8 = errors.New("source text is not valid UTF-8")

// A marker is one or more digits followed by a period at the start of a
// line. The leading newline is required, so a numeral at byte zero of the
// document does not open a section.
var markerRe = regexp.MustCompile(`\n(\d+\.)`)

// Extract splits text into numbered sections. Each section spans from its
// marker to the next marker (or end of text) and is trimmed of surrounding
// whitespace. Zero markers yields an empty result.
func Extract(text string) []domain.Section {
	locs := markerRe.FindAllStringIndex(text, -1)
	sections := make([]domain.Section, 0, len(locs))
	for i, loc := range locs {
		start := loc[0] + 1 // skip the newline preceding the marker
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0] + 1
		}
		sections = append(sections, domain.Section{
			Index: i,
			Text:  strings.TrimSpace(text[start:end]),
		})
	}
	return sections
}

// ExtractFile reads path and extracts its numbered sections.
func ExtractFile(path string) ([]domain.Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source text: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("read source text %s: %w", path, ErrNotUTF8)
	}
	return Extract(string(data)), nil
}
