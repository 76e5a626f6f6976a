// Package config loads markov2midi settings from the environment
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration. CLI flags take their
// defaults from here, so the environment only supplies defaults.
type Config struct {
	CorpusDir string
	Output    string
	Length    int
	Start     string // note number or name, empty for random
	Seed      string // empty for a random seed
	Mode      string
	Chords    string
	Threshold int
	Workers   int
	LogLevel  string
	Port      int
}

// Load reads an optional .env file and then the process environment
func Load(envFiles ...string) *Config {
	// a missing .env is the normal case
	_ = godotenv.Load(envFiles...)

	return &Config{
		CorpusDir: getEnv("MARKOV2MIDI_CORPUS", ""),
		Output:    getEnv("MARKOV2MIDI_OUTPUT", "generated_music.mid"),
		Length:    getEnvInt("MARKOV2MIDI_LENGTH", 100),
		Start:     getEnv("MARKOV2MIDI_START", ""),
		Seed:      getEnv("MARKOV2MIDI_SEED", ""),
		Mode:      getEnv("MARKOV2MIDI_MODE", "combined"),
		Chords:    getEnv("MARKOV2MIDI_CHORDS", ""),
		Threshold: getEnvInt("MARKOV2MIDI_THRESHOLD", 60),
		Workers:   getEnvInt("MARKOV2MIDI_WORKERS", 0),
		LogLevel:  getEnv("MARKOV2MIDI_LOG_LEVEL", "info"),
		Port:      getEnvInt("PORT", 8080),
	}
}

// ParseSeed converts a seed string; empty means no fixed seed
func ParseSeed(s string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	seed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seed %q: %w", s, err)
	}
	return &seed, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
