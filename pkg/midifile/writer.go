package midifile

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/james-see/markov2midi/pkg/markov"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// WriteError reports an output file that could not be written
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write MIDI file %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer serializes pitch sequences as single-track SMF data. Rhythm is not
// modeled, so every note gets the same length and velocity.
type Writer struct {
	TicksPerQuarter uint16
	Tempo           float64
	Velocity        uint8
	Channel         uint8
	// NoteLength is the length of every note in ticks
	NoteLength uint32
	TrackName  string
}

// NewWriter creates a Writer with quarter notes at 120 BPM
func NewWriter() *Writer {
	return &Writer{
		TicksPerQuarter: 480,
		Tempo:           120.0,
		Velocity:        90,
		NoteLength:      480,
		TrackName:       "markov2midi",
	}
}

// Encode creates MIDI data with one note per sequence element, in order
func (w *Writer) Encode(seq markov.Sequence) ([]byte, error) {
	if w.TicksPerQuarter == 0 {
		return nil, errors.New("ticks per quarter must be positive")
	}
	if w.NoteLength == 0 {
		return nil, errors.New("note length must be positive")
	}
	if w.Channel > 15 {
		return nil, fmt.Errorf("invalid channel %d", w.Channel)
	}

	tempo := w.Tempo
	if tempo <= 0 {
		tempo = 120.0
	}
	velocity := w.Velocity
	if velocity == 0 || velocity > 127 {
		velocity = 90
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(w.TicksPerQuarter)

	var track smf.Track
	if w.TrackName != "" {
		track.Add(0, smf.MetaTrackSequenceName(w.TrackName))
	}
	track.Add(0, smf.MetaTempo(tempo))
	track.Add(0, smf.MetaMeter(4, 4))

	for i, p := range seq {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %d at position %d", markov.ErrInvalidPitch, p, i)
		}
		track.Add(0, midi.NoteOn(w.Channel, uint8(p), velocity))
		track.Add(w.NoteLength, midi.NoteOff(w.Channel, uint8(p)))
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile encodes seq and writes it to filename
func (w *Writer) WriteFile(seq markov.Sequence, filename string) error {
	data, err := w.Encode(seq)
	if err != nil {
		return err
	}
	return WriteData(data, filename)
}

// WriteData writes already encoded MIDI data to filename
func WriteData(data []byte, filename string) error {
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return &WriteError{Path: filename, Err: err}
	}
	return nil
}
