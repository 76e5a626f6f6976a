// Package composer wires corpus extraction, model building, generation and
// MIDI output into one pipeline.
package composer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/james-see/markov2midi/pkg/corpus"
	"github.com/james-see/markov2midi/pkg/markov"
)

// Mode selects how the corpus is split into independently modeled streams
type Mode string

const (
	// ModeCombined models every note and chord tone as one stream
	ModeCombined Mode = "combined"
	// ModeHands models a left and a right hand stream separately and
	// concatenates their output, left first
	ModeHands Mode = "hands"
)

// Modes lists the supported modes
func Modes() []Mode {
	return []Mode{ModeCombined, ModeHands}
}

// ParseMode parses a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCombined:
		return ModeCombined, nil
	case ModeHands, "two-hands", "split":
		return ModeHands, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want combined or hands)", s)
	}
}

// Stream names
const (
	StreamAll   = "all"
	StreamLeft  = "left"
	StreamRight = "right"
)

// ErrEmptyCorpus is matched by every *EmptyCorpusError
var ErrEmptyCorpus = errors.New("empty corpus")

// EmptyCorpusError reports a stream with no pitch transitions to learn from
type EmptyCorpusError struct {
	Stream string
	Files  int
}

func (e *EmptyCorpusError) Error() string {
	return fmt.Sprintf("empty corpus: no pitch transitions in %q stream (%d files read)", e.Stream, e.Files)
}

func (e *EmptyCorpusError) Is(target error) bool { return target == ErrEmptyCorpus }

// MaxLength bounds the pitches generated per stream
const MaxLength = 10000

// Options controls a composition run
type Options struct {
	Mode Mode
	// Length is the number of pitches generated per stream
	Length int
	// Start fixes the first pitch of every stream; nil picks at random
	Start *markov.Pitch
	// Seed makes the run reproducible; nil seeds from the runtime source
	Seed *uint64
	// Chords overrides the mode's chord policy (combined includes,
	// hands excludes)
	Chords corpus.ChordPolicy
	// Threshold splits the hands; pitches below it go to the left stream
	Threshold markov.Pitch
}

// DefaultOptions returns the options of the original two-script setup
func DefaultOptions() Options {
	return Options{
		Mode:      ModeCombined,
		Length:    100,
		Threshold: corpus.DefaultThreshold,
	}
}

// Validate checks the options before any work is done
func (o Options) Validate() error {
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if o.Length < 1 || o.Length > MaxLength {
		return fmt.Errorf("%w: got %d, want 1-%d", markov.ErrInvalidLength, o.Length, MaxLength)
	}
	if o.Start != nil && !o.Start.Valid() {
		return fmt.Errorf("%w: start %d", markov.ErrInvalidPitch, *o.Start)
	}
	if !o.Threshold.Valid() {
		return fmt.Errorf("%w: threshold %d", markov.ErrInvalidPitch, o.Threshold)
	}
	return nil
}

// Stream is one independently modeled pitch stream
type Stream struct {
	Name        string          `json:"name"`
	Transitions int             `json:"transitions"`
	Table       *markov.Table   `json:"table"`
	Sequence    markov.Sequence `json:"sequence,omitempty"`
}

// Result holds the output of a composition run
type Result struct {
	Mode     Mode
	Streams  []Stream
	Sequence markov.Sequence
	MIDI     []byte
	Seed     uint64
	Files    int
	Skipped  []*corpus.ReadError
}
