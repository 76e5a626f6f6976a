// Package main is the entry point for the markov2midi API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/markov2midi/pkg/api"
	"github.com/james-see/markov2midi/pkg/config"
	"github.com/james-see/markov2midi/pkg/logging"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", cfg.Port, "Server port")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	fmt.Printf("Starting markov2midi API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port, logging.New(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
