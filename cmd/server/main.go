// Package main is the entry point for the wavenotes API server
package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/james-see/wavenotes/pkg/api"
	"github.com/james-see/wavenotes/pkg/session"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	tempo := flag.Float64("tempo", 120, "Export tempo in BPM")
	workDir := flag.String("workdir", "", "Parent directory for job working directories")
	transcriber := flag.String("transcriber", "stub", "Transcriber used for jobs (stub, basic-pitch)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	fmt.Printf("Starting wavenotes API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	s := api.New(api.Config{
		Port:  *port,
		Tempo: *tempo,
		Session: session.Options{
			Root:            *workDir,
			TranscriberName: *transcriber,
		},
	})
	defer s.Close()

	if err := s.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
