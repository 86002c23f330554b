package chroma

import (
	"math"
)

// Vector is one frame of pitch-class energy: index i holds the energy of PitchClass i
type Vector [NumPitchClasses]float64

// Profile is the time-averaged chroma of a clip
type Profile [NumPitchClasses]float64

// Energy returns the sum of all components
func (v Vector) Energy() float64 {
	sum := 0.0
	for _, c := range v {
		sum += c
	}
	return sum
}

// Dominant returns the pitch class with the largest component.
// Ties go to the lowest index.
func (v Vector) Dominant() PitchClass {
	best := 0
	for i := 1; i < NumPitchClasses; i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return PitchClass(best)
}

// Valid reports whether every component is a finite, non-negative number
func (v Vector) Valid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			return false
		}
	}
	return true
}

// FromSlice copies up to 12 values into a Vector. Missing bins stay zero.
func FromSlice(values []float64) Vector {
	var v Vector
	copy(v[:], values)
	return v
}

// Slice returns the profile as a freshly allocated slice
func (p Profile) Slice() []float64 {
	out := make([]float64, NumPitchClasses)
	copy(out, p[:])
	return out
}

// Dominant returns the strongest pitch class of the averaged profile
func (p Profile) Dominant() PitchClass {
	return Vector(p).Dominant()
}

// Normalized scales the profile so that its maximum is 1. A silent profile is
// returned unchanged.
func (p Profile) Normalized() Profile {
	peak := 0.0
	for _, c := range p {
		peak = math.Max(peak, c)
	}
	if peak == 0 {
		return p
	}
	var out Profile
	for i, c := range p {
		out[i] = c / peak
	}
	return out
}
