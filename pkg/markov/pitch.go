// Package markov builds first-order pitch transition tables and samples new
// pitch sequences from them.
package markov

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxPitch is the highest MIDI note number
const MaxPitch = 127

// Pitch is a MIDI note number (0-127)
type Pitch uint8

// Sequence is an ordered list of pitches
type Sequence []Pitch

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var noteOffsets = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// Valid reports whether p is within the MIDI note range
func (p Pitch) Valid() bool {
	return p <= MaxPitch
}

// String returns the note name in scientific pitch notation (60 = C4)
func (p Pitch) String() string {
	return fmt.Sprintf("%s%d", noteNames[int(p)%12], int(p)/12-1)
}

// ParsePitch accepts either a note number ("60") or a note name ("C4", "F#3", "Bb2").
func ParsePitch(s string) (Pitch, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPitch)
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > MaxPitch {
			return 0, fmt.Errorf("%w: %d out of range 0-%d", ErrInvalidPitch, n, MaxPitch)
		}
		return Pitch(n), nil
	}

	offset, ok := noteOffsets[strings.ToUpper(s[:1])]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPitch, s)
	}
	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		offset++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		offset--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPitch, s)
	}
	n := (octave+1)*12 + offset
	if n < 0 || n > MaxPitch {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidPitch, s)
	}
	return Pitch(n), nil
}

// Strings renders the sequence as note names
func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.String()
	}
	return out
}

// Ints returns the sequence as plain note numbers
func (s Sequence) Ints() []int {
	out := make([]int, len(s))
	for i, p := range s {
		out[i] = int(p)
	}
	return out
}

// MarshalJSON encodes the sequence as note numbers rather than base64 bytes
func (s Sequence) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ints())
}
