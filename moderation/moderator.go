// Package moderation masks censored words in message bodies before they
// are delivered or queued. Matching is resilient to casing, spacing,
// punctuation noise, and common leet-speak substitutions.
package moderation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher  *goahocorasick.Machine
	maskChar rune
}

// NewModerator builds the Aho-Corasick automaton over the normalized forms
// of the given words.
func NewModerator(words []string, maskChar rune) (*Moderator, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("no censored words provided")
	}
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalize([]rune(word)).runes
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, fmt.Errorf("building censor automaton: %w", err)
	}
	return &Moderator{matcher: machine, maskChar: maskChar}, nil
}

// LoadWords reads a censored-words file: one word per line, blank lines
// and lines starting with '#' ignored.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening censored words file: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Censor returns the input with every censored span masked, plus the
// normalized words that matched. Spacing and punctuation inside a matched
// span are masked along with it so the span length is preserved.
func (m *Moderator) Censor(original string) (string, []string) {
	mapping := normalize([]rune(original))
	if len(mapping.runes) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.runes, false)
	if len(spans) == 0 {
		return original, nil
	}

	masked := []rune(original)
	var matched []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapping.origIdx) {
			continue
		}
		matched = append(matched, string(span.Word))

		// Mask the original span, including any noise characters the
		// normalization skipped over.
		for i := mapping.origIdx[start]; i <= mapping.origIdx[end-1]; i++ {
			masked[i] = m.maskChar
		}
	}
	return string(masked), matched
}

// textMapping carries a normalized rune sequence and, for each normalized
// rune, the index of the original rune it came from.
type textMapping struct {
	runes   []rune
	origIdx []int
}

func normalize(input []rune) textMapping {
	mapping := textMapping{
		runes:   make([]rune, 0, len(input)),
		origIdx: make([]int, 0, len(input)),
	}
	for i, r := range input {
		plain := unleet(r)
		if isNoise(plain) {
			continue
		}
		mapping.runes = append(mapping.runes, unicode.ToLower(plain))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}

var leetTable = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

func unleet(r rune) rune {
	if plain, ok := leetTable[r]; ok {
		return plain
	}
	return r
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
