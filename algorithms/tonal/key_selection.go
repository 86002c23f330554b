package tonal

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
)

var (
	// ErrNoKey is returned when no candidate carries a defined correlation
	ErrNoKey = errors.New("no key could be determined")

	// ErrInvalidCount is returned by TopN for n < 1
	ErrInvalidCount = errors.New("invalid candidate count")
)

// Rank returns the defined candidates in selection order: correlation
// descending, then tonic present in observed, then lower tonic, then Major
// before Minor. observed may be nil.
func Rank(candidates []KeyCandidate, observed *chroma.ObservedNoteSet) []KeyCandidate {
	ranked := make([]KeyCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Defined() {
			ranked = append(ranked, c)
		}
	}

	slices.SortStableFunc(ranked, func(a, b KeyCandidate) int {
		if c := cmp.Compare(b.Correlation, a.Correlation); c != 0 {
			return c
		}
		if observed != nil {
			inA, inB := observed.Contains(a.Tonic), observed.Contains(b.Tonic)
			if inA != inB {
				if inA {
					return -1
				}
				return 1
			}
		}
		if c := cmp.Compare(a.Tonic.Normalize(), b.Tonic.Normalize()); c != 0 {
			return c
		}
		return cmp.Compare(a.Mode, b.Mode)
	})

	return ranked
}

// Select picks the best candidate whose tonic was observed as a dominant note.
// If no candidate's tonic was observed, the highest-correlation candidate wins.
func Select(candidates []KeyCandidate, observed chroma.ObservedNoteSet) (KeyCandidate, error) {
	ranked := Rank(candidates, &observed)
	if len(ranked) == 0 {
		return KeyCandidate{}, fmt.Errorf("select from %d candidates: %w", len(candidates), ErrNoKey)
	}

	for _, c := range ranked {
		if observed.Contains(c.Tonic) {
			return c, nil
		}
	}
	return ranked[0], nil
}

// TopN returns up to n candidates by correlation, ignoring observed notes
func TopN(candidates []KeyCandidate, n int) ([]KeyCandidate, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}

	ranked := Rank(candidates, nil)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("top %d of %d candidates: %w", n, len(candidates), ErrNoKey)
	}

	return ranked[:min(n, len(ranked))], nil
}
