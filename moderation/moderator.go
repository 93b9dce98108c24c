// Package moderation censors configured words in chat payloads before
// they are fanned out. Matching runs over a normalized shadow of the
// text (lowercased, leet-speak folded, punctuation stripped) while the
// replacement is applied to the original runes, so spacing and casing
// around a hit survive.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// NewModerator builds the Aho-Corasick automaton over the normalized
// word list. An empty list yields a nil Moderator, which disables
// censoring entirely.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	if len(words) == 0 {
		return nil, nil
	}

	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		norm, _ := normalize([]rune(w))
		if len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: m, replacement: replacement}, nil
}

// Censor replaces every matched span with the replacement rune. The
// input is returned unchanged when nothing matches.
func (m *Moderator) Censor(text string) string {
	original := []rune(text)
	norm, origIdx := normalize(original)
	if len(norm) == 0 {
		return text
	}

	hits := m.machine.MultiPatternSearch(norm, false)
	if len(hits) == 0 {
		return text
	}

	for _, hit := range hits {
		start := hit.Pos
		end := start + len(hit.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		// Map the normalized span back onto the original runes
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			original[i] = m.replacement
		}
	}
	return string(original)
}

// normalize lowercases, folds leet substitutions and drops noise runes.
// origIdx[i] is the original position of the i-th normalized rune.
func normalize(in []rune) (norm []rune, origIdx []int) {
	norm = make([]rune, 0, len(in))
	origIdx = make([]int, 0, len(in))

	for i, r := range in {
		folded := foldLeet(r)
		if isNoise(folded) {
			continue
		}
		norm = append(norm, unicode.ToLower(folded))
		origIdx = append(origIdx, i)
	}
	return norm, origIdx
}

func foldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
