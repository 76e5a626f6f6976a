package corpus

import (
	"fmt"
	"strings"

	"github.com/james-see/markov2midi/pkg/markov"
)

// ChordPolicy decides whether chord tones enter the pitch stream
type ChordPolicy int

const (
	// ChordsDefault lets the caller's mode pick
	ChordsDefault ChordPolicy = iota
	// IncludeChords appends every chord tone, lowest first, at the chord's position
	IncludeChords
	// ExcludeChords keeps single notes only
	ExcludeChords
)

// DefaultThreshold splits the hands at middle C
const DefaultThreshold markov.Pitch = 60

func (p ChordPolicy) String() string {
	switch p {
	case IncludeChords:
		return "include"
	case ExcludeChords:
		return "exclude"
	default:
		return "default"
	}
}

// ParseChordPolicy accepts "include", "exclude" or "" / "default"
func ParseChordPolicy(s string) (ChordPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ChordsDefault, nil
	case "include", "yes", "true":
		return IncludeChords, nil
	case "exclude", "no", "false":
		return ExcludeChords, nil
	default:
		return ChordsDefault, fmt.Errorf("unknown chord policy %q (want include or exclude)", s)
	}
}

// Pitches flattens the file into one pitch stream
func (f File) Pitches(policy ChordPolicy) markov.Sequence {
	var seq markov.Sequence
	for _, o := range f.Onsets {
		if o.IsChord() && policy == ExcludeChords {
			continue
		}
		seq = append(seq, o.Pitches...)
	}
	return seq
}

// Sequences returns one flattened stream per file. Chords are included
// unless policy is ExcludeChords.
func (c *Corpus) Sequences(policy ChordPolicy) []markov.Sequence {
	seqs := make([]markov.Sequence, 0, len(c.Files))
	for _, f := range c.Files {
		seqs = append(seqs, f.Pitches(policy))
	}
	return seqs
}

// SplitHands partitions seq by pitch: below threshold is the left hand,
// everything else the right.
func SplitHands(seq markov.Sequence, threshold markov.Pitch) (left, right markov.Sequence) {
	for _, p := range seq {
		if p < threshold {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}
	return left, right
}

// Hands splits each file's stream into left and right hand streams. Chord
// tones are excluded unless policy is IncludeChords.
func (c *Corpus) Hands(threshold markov.Pitch, policy ChordPolicy) (left, right []markov.Sequence) {
	if policy == ChordsDefault {
		policy = ExcludeChords
	}
	for _, f := range c.Files {
		l, r := SplitHands(f.Pitches(policy), threshold)
		left = append(left, l)
		right = append(right, r)
	}
	return left, right
}
