package midifile

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/james-see/markov2midi/pkg/markov"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Onset is the set of pitches struck at the same tick on the same track.
// A single pitch is a note; more than one is a chord.
type Onset struct {
	Tick    int64
	Track   int
	Pitches []markov.Pitch // ascending
}

// IsChord reports whether the onset holds more than one pitch
func (o Onset) IsChord() bool {
	return len(o.Pitches) > 1
}

// ReadOnsets parses SMF data and returns its note onsets in time order.
// Onsets at the same tick are ordered by track number.
func ReadOnsets(data []byte) ([]Onset, error) {
	if DetectFormatFromContent(data) != FormatMIDI {
		return nil, fmt.Errorf("failed to parse MIDI: missing MThd header")
	}

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	type key struct {
		track int
		tick  int64
	}
	grouped := make(map[key]*Onset)
	var onsets []*Onset

	for trackNo, track := range s.Tracks {
		var currentTick int64
		for _, ev := range track {
			currentTick += int64(ev.Delta)

			var ch, note, vel uint8
			// GetNoteStart skips note-on with velocity 0
			if !ev.Message.GetNoteStart(&ch, &note, &vel) {
				continue
			}

			k := key{track: trackNo, tick: currentTick}
			o, ok := grouped[k]
			if !ok {
				o = &Onset{Tick: currentTick, Track: trackNo}
				grouped[k] = o
				onsets = append(onsets, o)
			}
			o.Pitches = append(o.Pitches, markov.Pitch(note))
		}
	}

	sort.SliceStable(onsets, func(i, j int) bool {
		if onsets[i].Tick != onsets[j].Tick {
			return onsets[i].Tick < onsets[j].Tick
		}
		return onsets[i].Track < onsets[j].Track
	})

	out := make([]Onset, len(onsets))
	for i, o := range onsets {
		sort.Slice(o.Pitches, func(a, b int) bool { return o.Pitches[a] < o.Pitches[b] })
		out[i] = *o
	}
	return out, nil
}
