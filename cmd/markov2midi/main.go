// Package main is the entry point for markov2midi CLI
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/james-see/markov2midi/pkg/api"
	"github.com/james-see/markov2midi/pkg/composer"
	"github.com/james-see/markov2midi/pkg/config"
	"github.com/james-see/markov2midi/pkg/corpus"
	"github.com/james-see/markov2midi/pkg/logging"
	"github.com/james-see/markov2midi/pkg/markov"
	"github.com/james-see/markov2midi/pkg/tui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfg = config.Load()

	outputFile string
	length     int
	startNote  string
	seedValue  string
	modeName   string
	chordsName string
	threshold  int
	workers    int
	logLevel   string
	jsonOutput bool
	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "markov2midi",
	Short: "Generate new MIDI melodies from a Markov model of a MIDI corpus",
	Long: `markov2midi learns pitch-to-pitch transition probabilities from a
directory of MIDI files and samples a new melody from them.

Modes:
  combined  one model over every note and chord tone (default)
  hands     separate left/right hand models split at a pitch threshold,
            generated independently and concatenated left then right

Examples:
  markov2midi generate ./corpus -o generated.mid -n 100
  markov2midi generate ./corpus --mode hands --seed 42 --start C4
  markov2midi inspect ./corpus --json
  markov2midi tui
  markov2midi serve --port 8080`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate [corpus-dir]",
	Short: "Learn from a corpus and write a generated MIDI file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGenerate,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [corpus-dir]",
	Short: "Print the transition table learned from a corpus",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", cfg.Workers, "Concurrent file parsers (0 = one per CPU)")

	// Model flags shared by generate and inspect
	for _, cmd := range []*cobra.Command{generateCmd, inspectCmd} {
		cmd.Flags().StringVarP(&modeName, "mode", "m", cfg.Mode, "Generation mode (combined, hands)")
		cmd.Flags().StringVar(&chordsName, "chords", cfg.Chords, "Chord tones: include or exclude (default depends on mode)")
		cmd.Flags().IntVar(&threshold, "threshold", cfg.Threshold, "Hand split pitch; lower notes go to the left hand")
	}

	// generate command
	generateCmd.Flags().StringVarP(&outputFile, "output", "o", cfg.Output, "Output .mid file path")
	generateCmd.Flags().IntVarP(&length, "length", "n", cfg.Length, "Notes to generate per stream")
	generateCmd.Flags().StringVarP(&startNote, "start", "s", cfg.Start, "Start pitch as number or name (e.g. 60 or C4)")
	generateCmd.Flags().StringVar(&seedValue, "seed", cfg.Seed, "Random seed for reproducible output")

	// inspect command
	inspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the tables as JSON")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", cfg.Port, "Server port")

	// Add commands
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func newLogger() *logrus.Logger {
	return logging.New(logLevel)
}

func corpusDir(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cfg.CorpusDir != "" {
		return cfg.CorpusDir, nil
	}
	return "", fmt.Errorf("corpus directory required (argument or MARKOV2MIDI_CORPUS)")
}

// modelOptions holds the flags that shape the learned tables
func modelOptions() (composer.Options, error) {
	opts := composer.DefaultOptions()

	mode, err := composer.ParseMode(modeName)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode

	chords, err := corpus.ParseChordPolicy(chordsName)
	if err != nil {
		return opts, err
	}
	opts.Chords = chords

	if threshold < 0 || threshold > markov.MaxPitch {
		return opts, fmt.Errorf("threshold %d out of range 0-%d", threshold, markov.MaxPitch)
	}
	opts.Threshold = markov.Pitch(threshold)
	return opts, nil
}

func buildOptions() (composer.Options, error) {
	opts, err := modelOptions()
	if err != nil {
		return opts, err
	}
	opts.Length = length

	if startNote != "" {
		p, err := markov.ParsePitch(startNote)
		if err != nil {
			return opts, err
		}
		opts.Start = &p
	}

	opts.Seed, err = config.ParseSeed(seedValue)
	if err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

func newComposer(logger *logrus.Logger) *composer.Composer {
	c := composer.New(nil, logger)
	c.SetWorkers(workers)
	return c
}

func runGenerate(cmd *cobra.Command, args []string) error {
	dir, err := corpusDir(args)
	if err != nil {
		return err
	}
	opts, err := buildOptions()
	if err != nil {
		return err
	}

	logger := newLogger()
	fmt.Printf("Learning from %s (%s mode)...\n", dir, opts.Mode)

	result, err := newComposer(logger).ComposeDir(context.Background(), dir, outputFile, opts)
	if err != nil {
		return err
	}

	for _, s := range result.Streams {
		fmt.Printf("  %-5s %4d transitions, %3d source pitches\n", s.Name, s.Transitions, s.Table.Len())
	}
	if len(result.Skipped) > 0 {
		fmt.Printf("Skipped %d unreadable files\n", len(result.Skipped))
	}
	fmt.Printf("Generated %d notes (seed %d) -> %s\n", len(result.Sequence), result.Seed, outputFile)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	dir, err := corpusDir(args)
	if err != nil {
		return err
	}
	opts, err := modelOptions()
	if err != nil {
		return err
	}

	c := newComposer(newLogger())
	corp, err := c.Scan(context.Background(), dir)
	if err != nil {
		return err
	}
	streams, err := c.Model(corp, opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(streams)
	}

	out := cmd.OutOrStdout()
	for _, s := range streams {
		fmt.Fprintf(out, "== %s: %d transitions\n", s.Name, s.Transitions)
		for _, from := range s.Table.Keys() {
			var parts []string
			for _, tr := range s.Table.Row(from) {
				parts = append(parts, fmt.Sprintf("%s:%.3f", tr.To, tr.Probability))
			}
			fmt.Fprintf(out, "%-4s -> %s\n", from, strings.Join(parts, " "))
		}
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort, newLogger())
}
