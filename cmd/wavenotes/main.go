// Package main is the entry point for the wavenotes CLI
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/james-see/wavenotes/pkg/api"
	"github.com/james-see/wavenotes/pkg/audio"
	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/preview"
	"github.com/james-see/wavenotes/pkg/session"
	"github.com/james-see/wavenotes/pkg/transcribe"
	"github.com/james-see/wavenotes/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile      string
	previewFile     string
	jsonFile        string
	transcriberName string
	workRoot        string
	ffmpegPath      string
	sampleRate      int
	serverPort      int
	mergeStems      bool
	verbose         bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wavenotes",
	Short: "Transcribe audio into editable notes and export MIDI",
	Long: `wavenotes turns audio recordings into note sequences, cleans them with a
configurable post-processing pipeline and exports Standard MIDI Files and
audition previews.

Examples:
  wavenotes analyze song.mp3 -o song.mid --preview song_preview.wav
  wavenotes clean take.mid -o take_clean.mid --quantize --quantize-grid 1/8
  wavenotes preview take.mid -o take.wav
  wavenotes stems bass=bass.mid vocals=vocals.mid -o stems.mid
  wavenotes tui
  wavenotes serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <audio>",
	Short: "Transcribe an audio file and export cleaned MIDI",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var cleanCmd = &cobra.Command{
	Use:   "clean <input.mid|input.json>",
	Short: "Run the post-processing pipeline over a MIDI or JSON note file",
	Args:  cobra.ExactArgs(1),
	RunE:  runClean,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long:  `Automatically detects input format and converts to the output format based on file extension. Notes are cleaned on the way.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var previewCmd = &cobra.Command{
	Use:   "preview <input.mid|input.json>",
	Short: "Render a sine-wave WAV preview of cleaned notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var stemsCmd = &cobra.Command{
	Use:   "stems <name=file.mid>...",
	Short: "Combine per-stem MIDI files into one multi-track file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStems,
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
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cliSettings.register(rootCmd.PersistentFlags())

	// analyze command
	analyzeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	analyzeCmd.Flags().StringVar(&previewFile, "preview", "", "Also render a WAV preview to this path")
	analyzeCmd.Flags().StringVar(&jsonFile, "json", "", "Also write the cleaned notes as JSON to this path")
	analyzeCmd.Flags().StringVarP(&transcriberName, "transcriber", "t", transcribe.NameStub,
		fmt.Sprintf("Transcriber (%s)", strings.Join(transcribe.Available(), ", ")))
	analyzeCmd.Flags().StringVar(&workRoot, "workdir", "", "Parent directory for the session working directory")
	analyzeCmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "", "Path to the ffmpeg executable")

	// clean command
	cleanCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	// preview command
	previewCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .wav file path")
	previewCmd.Flags().IntVar(&sampleRate, "sample-rate", preview.DefaultSampleRate, "Preview sample rate")

	// stems command
	stemsCmd.Flags().StringVarP(&outputFile, "output", "o", "stems.mid", "Output .mid file path")
	stemsCmd.Flags().BoolVar(&mergeStems, "merge", false, "Merge every stem into a single track")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(stemsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func getOutputPath(input, suffix string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + suffix
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	input := args[0]
	settings, tempo, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	sess, err := session.New(session.Options{
		Root:            workRoot,
		TranscriberName: transcriberName,
		Decoder:         audio.NewDecoder(nil, ffmpegPath),
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := analyzeWithProgress(ctx, sess, input, settings)
	if err != nil {
		return err
	}

	output := getOutputPath(input, ".mid")
	if _, err := sess.ExportMIDI(output, tempo); err != nil {
		return err
	}
	fmt.Printf("Transcribed %s -> %s (%d notes)\n", input, output, len(a.Notes))

	if previewFile != "" {
		if err := preview.RenderFile(previewFile, a.Notes, preview.DefaultSampleRate); err != nil {
			return err
		}
		fmt.Printf("Preview written to %s\n", previewFile)
	}
	if jsonFile != "" {
		conv := converter.New(settings, tempo)
		if err := conv.WriteJSON(a.Notes, jsonFile); err != nil {
			return err
		}
		fmt.Printf("Notes written to %s\n", jsonFile)
	}
	return nil
}

func analyzeWithProgress(ctx context.Context, sess *session.Session, input string, settings notes.Settings) (*session.Analysis, error) {
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))

	var mu sync.Mutex
	stage := "Starting"
	bar := p.AddBar(100,
		mpb.PrependDecorators(
			decor.Name(filepath.Base(input)+" "),
			decor.Any(func(decor.Statistics) string {
				mu.Lock()
				defer mu.Unlock()
				return stage
			}, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	task, err := sess.Start(ctx, input, settings, func(pct int, msg string) {
		mu.Lock()
		stage = msg
		mu.Unlock()
		bar.SetCurrent(int64(pct))
	})
	if err != nil {
		bar.Abort(true)
		p.Wait()
		return nil, err
	}

	a, err := task.Wait()
	if err != nil {
		bar.Abort(false)
	} else {
		bar.SetTotal(-1, true)
	}
	p.Wait()
	return a, err
}

func readNotes(input string) ([]notes.NoteEvent, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	format := converter.DetectFormat(input)
	if format == converter.FormatUnknown {
		format = converter.DetectFormatFromContent(data)
	}
	switch format {
	case converter.FormatMIDI:
		return converter.NewMIDIConverter().ParseMIDI(data)
	case converter.FormatJSON:
		return converter.DecodeNotes(data)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, "_clean.mid")

	settings, tempo, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	raw, err := readNotes(input)
	if err != nil {
		return err
	}

	cleaned := notes.Apply(raw, settings)
	m := converter.NewMIDIConverter()
	m.SetTempo(tempo)
	if _, err := m.ExportMIDI(cleaned, output); err != nil {
		return err
	}

	fmt.Printf("Cleaned %s -> %s (%d -> %d notes)\n", input, output, len(raw), len(cleaned))
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	settings, tempo, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	conv := converter.New(settings, tempo)

	fmt.Printf("Converting %s -> %s\n", input, outputFile)
	if err := conv.ConvertFile(input, outputFile); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, "_preview.wav")

	settings, _, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	raw, err := readNotes(input)
	if err != nil {
		return err
	}

	if err := preview.RenderFile(output, notes.Apply(raw, settings), sampleRate); err != nil {
		return err
	}
	fmt.Printf("Rendered %s -> %s\n", input, output)
	return nil
}

func runStems(cmd *cobra.Command, args []string) error {
	settings, tempo, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	tracks := make([]converter.Track, 0, len(args))
	for _, arg := range args {
		name, path, ok := strings.Cut(arg, "=")
		if !ok {
			path = arg
			name = strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
		}
		raw, err := readNotes(path)
		if err != nil {
			return fmt.Errorf("failed to read stem %q: %w", name, err)
		}
		tracks = append(tracks, converter.Track{Name: name, Notes: notes.Apply(raw, settings)})
	}

	m := converter.NewMIDIConverter()
	m.SetTempo(tempo)

	var res *converter.ExportResult
	if mergeStems {
		res, err = m.ExportMerged(tracks, outputFile)
	} else {
		res, err = m.ExportMultiTrack(tracks, outputFile)
	}
	if err != nil {
		return err
	}

	if res.Fallback {
		fmt.Println("Multi-track export unavailable; wrote one file per stem:")
	} else {
		fmt.Printf("Exported %d stems:\n", len(tracks))
	}
	for _, p := range res.Paths {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	settings, tempo, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	return tui.Run(tui.Options{Settings: settings, Tempo: tempo})
}

func runServe(cmd *cobra.Command, args []string) error {
	_, tempo, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", serverPort)

	s := api.New(api.Config{Port: serverPort, Tempo: tempo})
	defer s.Close()
	return s.Run()
}
