package composer

import (
	"context"
	"math/rand/v2"

	"github.com/james-see/markov2midi/pkg/corpus"
	"github.com/james-see/markov2midi/pkg/markov"
	"github.com/james-see/markov2midi/pkg/midifile"
	"github.com/sirupsen/logrus"
)

// Composer runs the corpus -> model -> generation -> MIDI pipeline
type Composer struct {
	writer  *midifile.Writer
	logger  logrus.FieldLogger
	workers int
}

// New creates a Composer that encodes output with writer
func New(writer *midifile.Writer, logger logrus.FieldLogger) *Composer {
	if writer == nil {
		writer = midifile.NewWriter()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Composer{writer: writer, logger: logger}
}

// SetWorkers bounds concurrent file parsing during scans
func (c *Composer) SetWorkers(n int) {
	c.workers = n
}

// Writer returns the MIDI writer used for output
func (c *Composer) Writer() *midifile.Writer {
	return c.writer
}

type streamInput struct {
	name string
	seqs []markov.Sequence
}

// Model builds the transition table of every stream the mode defines. It
// fails with an *EmptyCorpusError when a stream has nothing to learn from.
func (c *Composer) Model(corp *corpus.Corpus, opts Options) ([]Stream, error) {
	logger := c.logger.WithFields(logrus.Fields{
		"function": "Composer.Model",
		"mode":     opts.Mode,
	})
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}

	var named []streamInput
	switch mode {
	case ModeHands:
		left, right := corp.Hands(opts.Threshold, opts.Chords)
		named = append(named, streamInput{StreamLeft, left}, streamInput{StreamRight, right})
	default:
		named = append(named, streamInput{StreamAll, corp.Sequences(opts.Chords)})
	}

	streams := make([]Stream, 0, len(named))
	for _, n := range named {
		counts := markov.NewCounts()
		for _, seq := range n.seqs {
			counts.Add(seq)
		}
		transitions := counts.Transitions()
		if transitions == 0 {
			return nil, &EmptyCorpusError{Stream: n.name, Files: len(corp.Files)}
		}

		table := counts.Normalize()
		logger.Infof("stream %s: %d transitions over %d source pitches", n.name, transitions, table.Len())
		streams = append(streams, Stream{Name: n.name, Transitions: transitions, Table: table})
	}
	return streams, nil
}

// Compose models the corpus and generates opts.Length pitches per stream.
// Streams share one random source and are generated in order, so a fixed
// seed reproduces the whole result.
func (c *Composer) Compose(corp *corpus.Corpus, opts Options) (*Result, error) {
	logger := c.logger.WithField("function", "Composer.Compose")
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Mode, _ = ParseMode(string(opts.Mode))

	streams, err := c.Model(corp, opts)
	if err != nil {
		return nil, err
	}

	var seed uint64
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		seed = rand.Uint64()
	}
	rng := markov.NewRand(seed)
	logger.Debugf("seed %d", seed)

	result := &Result{
		Mode:    opts.Mode,
		Files:   len(corp.Files),
		Skipped: corp.Skipped,
		Seed:    seed,
	}
	for i := range streams {
		seq, err := markov.NewGenerator(streams[i].Table, rng).Generate(opts.Length, opts.Start)
		if err != nil {
			return nil, err
		}
		streams[i].Sequence = seq
		result.Sequence = append(result.Sequence, seq...)
	}
	result.Streams = streams

	result.MIDI, err = c.writer.Encode(result.Sequence)
	if err != nil {
		return nil, err
	}
	logger.Infof("generated %d pitches", len(result.Sequence))
	return result, nil
}

// Scan reads the corpus below dir
func (c *Composer) Scan(ctx context.Context, dir string) (*corpus.Corpus, error) {
	return corpus.Scan(ctx, dir, corpus.Options{Workers: c.workers, Logger: c.logger})
}

// ComposeDir scans corpusDir, composes and writes the result to outputPath
func (c *Composer) ComposeDir(ctx context.Context, corpusDir, outputPath string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	corp, err := c.Scan(ctx, corpusDir)
	if err != nil {
		return nil, err
	}

	result, err := c.Compose(corp, opts)
	if err != nil {
		return nil, err
	}

	if err := midifile.WriteData(result.MIDI, outputPath); err != nil {
		return nil, err
	}
	c.logger.WithField("function", "Composer.ComposeDir").Infof("wrote %s", outputPath)
	return result, nil
}
