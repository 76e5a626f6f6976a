// Package midifile reads note onsets from Standard MIDI Files and writes
// pitch sequences back out as SMF data.
package midifile

import (
	"path/filepath"
	"strings"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on its extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	// Check for MIDI file signature "MThd"
	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	return FormatUnknown
}

// IsMIDI reports whether filename carries a MIDI extension
func IsMIDI(filename string) bool {
	return DetectFormat(filename) == FormatMIDI
}
