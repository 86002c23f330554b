package chroma

import (
	"errors"
	"fmt"
	"math"
)

// DefaultEnergyThreshold is the minimum component sum for a frame to count.
// Frames are expected on the max-normalized scale produced by Extractor.
const DefaultEnergyThreshold = 2.0

var (
	// ErrInsufficientData is returned by Finalize when no frame has been accepted
	ErrInsufficientData = errors.New("insufficient data: no frames accepted")
	// ErrInvalidThreshold is returned for a threshold that is not a positive finite number
	ErrInvalidThreshold = errors.New("energy threshold must be positive")
)

// ObservedNoteSet is the set of pitch classes that were dominant in at least one accepted frame
type ObservedNoteSet struct {
	present [NumPitchClasses]bool
}

// Add marks pc as observed
func (s *ObservedNoteSet) Add(pc PitchClass) {
	s.present[pc.Normalize()] = true
}

// Contains reports whether pc was observed
func (s ObservedNoteSet) Contains(pc PitchClass) bool {
	return s.present[pc.Normalize()]
}

// Len returns the number of distinct observed pitch classes
func (s ObservedNoteSet) Len() int {
	n := 0
	for _, p := range s.present {
		if p {
			n++
		}
	}
	return n
}

// Members returns the observed pitch classes in ascending order
func (s ObservedNoteSet) Members() []PitchClass {
	members := make([]PitchClass, 0, NumPitchClasses)
	for i, p := range s.present {
		if p {
			members = append(members, PitchClass(i))
		}
	}
	return members
}

// NewObservedNoteSet builds a set from the given pitch classes
func NewObservedNoteSet(pcs ...PitchClass) ObservedNoteSet {
	var s ObservedNoteSet
	for _, pc := range pcs {
		s.Add(pc)
	}
	return s
}

// AccumulatorStats summarizes the frames seen so far
type AccumulatorStats struct {
	Accepted  int     `json:"accepted"`
	Rejected  int     `json:"rejected"`
	Threshold float64 `json:"threshold"`
}

// Accumulator sums qualifying chroma frames into a running profile.
// It is owned by a single analysis and is not safe for concurrent use.
type Accumulator struct {
	threshold float64
	sum       Vector
	accepted  int
	rejected  int
	observed  ObservedNoteSet
}

// NewAccumulator creates an accumulator with the given energy threshold
func NewAccumulator(threshold float64) (*Accumulator, error) {
	if !(threshold > 0) || math.IsInf(threshold, 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	return &Accumulator{threshold: threshold}, nil
}

// Threshold returns the energy threshold in use
func (a *Accumulator) Threshold() float64 {
	return a.threshold
}

// Accept folds frame into the running sum if its energy reaches the threshold.
// It returns the frame's dominant pitch class and whether the frame counted.
// Frames with NaN, infinite or negative components are rejected.
func (a *Accumulator) Accept(frame Vector) (PitchClass, bool) {
	if !frame.Valid() || frame.Energy() < a.threshold {
		a.rejected++
		return 0, false
	}

	for i, c := range frame {
		a.sum[i] += c
	}
	a.accepted++

	dominant := frame.Dominant()
	a.observed.Add(dominant)
	return dominant, true
}

// Finalize returns the mean of the accepted frames
func (a *Accumulator) Finalize() (Profile, error) {
	if a.accepted == 0 {
		return Profile{}, fmt.Errorf("%w (%d rejected)", ErrInsufficientData, a.rejected)
	}

	var p Profile
	n := float64(a.accepted)
	for i, c := range a.sum {
		p[i] = c / n
	}
	return p, nil
}

// Observed returns a copy of the observed note set
func (a *Accumulator) Observed() ObservedNoteSet {
	return a.observed
}

// Stats returns the accepted and rejected frame counts
func (a *Accumulator) Stats() AccumulatorStats {
	return AccumulatorStats{
		Accepted:  a.accepted,
		Rejected:  a.rejected,
		Threshold: a.threshold,
	}
}

// Reset clears all accumulated state. The threshold is kept.
func (a *Accumulator) Reset() {
	*a = Accumulator{threshold: a.threshold}
}

// ObservedNames returns the note names of the observed set, in ascending order
func (a *Accumulator) ObservedNames() []string {
	members := a.observed.Members()
	names := make([]string, len(members))
	for i, pc := range members {
		names[i] = pc.String()
	}
	return names
}
