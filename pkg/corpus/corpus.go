// Package corpus discovers MIDI files and turns them into pitch sequences
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/james-see/markov2midi/pkg/midifile"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrCorpusUnreadable is returned when the corpus directory cannot be walked
var ErrCorpusUnreadable = errors.New("corpus directory unreadable")

// ReadError reports a corpus file that could not be read or parsed
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("skipping %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Source is a named MIDI file whose contents are loaded on demand
type Source struct {
	Name string
	Load func() ([]byte, error)
}

// FileSource reads path from disk
func FileSource(path string) Source {
	return Source{Name: path, Load: func() ([]byte, error) { return os.ReadFile(path) }}
}

// BytesSource wraps in-memory data, e.g. an uploaded file
func BytesSource(name string, data []byte) Source {
	return Source{Name: name, Load: func() ([]byte, error) { return data, nil }}
}

// Options controls how a corpus is read
type Options struct {
	// Workers bounds concurrent parsing; zero means GOMAXPROCS
	Workers int
	Logger  logrus.FieldLogger
}

// File is one parsed corpus file
type File struct {
	Path   string
	Onsets []midifile.Onset
}

// Corpus holds every file that parsed, in discovery order
type Corpus struct {
	Files   []File
	Skipped []*ReadError
}

// Discover walks dir recursively and returns the MIDI files below it, sorted
func Discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && midifile.IsMIDI(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorpusUnreadable, dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Scan discovers and parses every MIDI file below dir
func Scan(ctx context.Context, dir string, opts Options) (*Corpus, error) {
	paths, err := Discover(dir)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, len(paths))
	for i, p := range paths {
		sources[i] = FileSource(p)
	}
	return Read(ctx, sources, opts)
}

// Read parses sources concurrently. A source that fails to load or parse is
// logged and recorded in Skipped; it never aborts the read. The result keeps
// the order of sources regardless of which worker finished first.
func Read(ctx context.Context, sources []Source, opts Options) (*Corpus, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("function", "corpus.Read")

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	files := make([]*File, len(sources))
	failures := make([]*ReadError, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := src.Load()
			if err == nil {
				var onsets []midifile.Onset
				onsets, err = midifile.ReadOnsets(data)
				if err == nil {
					files[i] = &File{Path: src.Name, Onsets: onsets}
					return nil
				}
			}
			failures[i] = &ReadError{Path: src.Name, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &Corpus{}
	for i := range sources {
		if failures[i] != nil {
			logger.WithError(failures[i].Err).Warnf("skipping unreadable file %s", failures[i].Path)
			c.Skipped = append(c.Skipped, failures[i])
			continue
		}
		c.Files = append(c.Files, *files[i])
	}
	logger.Infof("read %d files, skipped %d", len(c.Files), len(c.Skipped))
	return c, nil
}
