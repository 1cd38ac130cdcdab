package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-translate/src/config"
	"screen-translate/src/history"
	"screen-translate/src/runtimeinit"
	"screen-translate/src/session"
	"screen-translate/src/translate"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	capture    bool
	backend    string
	source     string
	target     string
	strategy   string
	envFile    string
	save       bool
	jsonOutput bool
	verbose    bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-translate-cli"}
	}
	opts := &cliOptions{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "screen-translate-cli",
		Short:         "OCR and translate a PNG file or a fresh screen capture",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Path to a .env file (highest precedence)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	root.AddCommand(newTranslateCmd(opts), newHistoryCmd(opts))
	return root
}

func newTranslateCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Extract text from an image and translate it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), *opts)
		},
	}
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.capture, "capture", false, "Capture the primary display instead of reading a file")
	cmd.Flags().StringVar(&opts.backend, "backend", "", fmt.Sprintf("Translation backend %v (default from TRANSLATOR)", translate.Names()))
	cmd.Flags().StringVar(&opts.source, "source", "", "Source language (default from SOURCE_LANG)")
	cmd.Flags().StringVar(&opts.target, "target", "", "Target language (default from TARGET_LANG)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "OCR strategy: detector|classic|vision (default from OCR_STRATEGY)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Append the result to the history file")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.MarkFlagsMutuallyExclusive("file", "capture")
	cmd.MarkFlagsOneRequired("file", "capture")
	return cmd
}

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the saved translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(*opts)
			cfg, err := config.LoadWithOptions(config.LoadOptions{EnvFileOverride: opts.envFile})
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			text, err := history.New(cfg.HistoryFile).Load()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(opts.stdout, text)
			return err
		},
	}
}

func setupLogging(opts cliOptions) {
	// Configure logging BEFORE any other operations.
	if opts.verbose {
		log.SetOutput(opts.stderr)
	} else {
		log.SetOutput(io.Discard)
	}
}

func runTranslate(ctx context.Context, opts cliOptions) error {
	setupLogging(opts)

	var backend translate.Name
	if opts.backend != "" {
		name, err := translate.ParseName(opts.backend)
		if err != nil {
			return fmt.Errorf("--backend must be one of %v", translate.Names())
		}
		backend = name
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{EnvFileOverride: opts.envFile, StrategyOverride: opts.strategy},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	settings := rt.DefaultSettings()
	if backend != "" {
		settings.Backend = backend
	}
	if opts.source != "" {
		settings.Source = opts.source
	}
	if opts.target != "" {
		settings.Target = opts.target
	}
	verbosef(opts, "backend=%s source=%s target=%s strategy=%s", settings.Backend, settings.Source, settings.Target, rt.Config.OCRStrategy)

	sessOpts := rt.SessionOptions(session.Discard, func() session.Settings { return settings })
	if !opts.save {
		sessOpts.History = nil
	} else if sessOpts.History == nil {
		sessOpts.History = history.New(rt.Config.HistoryFile)
	}

	source := "capture"
	if !opts.capture {
		source = opts.filePath
		img, err := readPNG(opts)
		if err != nil {
			return err
		}
		sessOpts.Capture = func(context.Context) (*image.RGBA, error) { return img, nil }
	}

	o := session.RunOnce(ctx, sessOpts)
	verbosef(opts, "run %s finished in %v", o.RunID, o.Duration)
	if o.Err != nil {
		return o.Err
	}
	return outputResult(opts, source, o)
}

func readPNG(opts cliOptions) (*image.RGBA, error) {
	var data []byte
	var err error
	if opts.filePath == "-" {
		verbosef(opts, "Reading image from stdin")
		data, err = io.ReadAll(io.LimitReader(opts.stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		verbosef(opts, "Reading image from file: %s", opts.filePath)
		data, err = os.ReadFile(opts.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", opts.filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, errors.New("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		return nil, errors.New("input is not a valid PNG file (invalid magic number)")
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	if rgba, ok := decoded.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(decoded.Bounds())
	draw.Draw(rgba, rgba.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	return rgba, nil
}

type TranslationResult struct {
	Original   string  `json:"original"`
	Translated string  `json:"translated"`
	Backend    string  `json:"backend"`
	ErrorKind  string  `json:"error_kind,omitempty"`
	Source     string  `json:"source"`
	RunID      string  `json:"run_id"`
	Timestamp  string  `json:"timestamp"`
	Duration   float64 `json:"duration_seconds"`
}

func outputResult(opts cliOptions, source string, o session.Outcome) error {
	if opts.jsonOutput {
		result := TranslationResult{
			Original:   o.Extracted,
			Translated: o.Translated,
			Source:     source,
			RunID:      o.RunID,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Duration:   o.Duration.Seconds(),
		}
		if o.TranslateErr != nil {
			result.ErrorKind = translate.KindOf(o.TranslateErr).String()
			var te *translate.Error
			if errors.As(o.TranslateErr, &te) {
				result.Backend = string(te.Backend)
			}
		}
		encoder := json.NewEncoder(opts.stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
	} else {
		fmt.Fprintln(opts.stdout, o.Translated)
	}
	if o.TranslateErr != nil {
		return errors.New(o.Translated)
	}
	return nil
}

func verbosef(opts cliOptions, format string, args ...any) {
	if opts.verbose {
		fmt.Fprintf(opts.stderr, "[verbose] "+format+"\n", args...)
	}
}

// normalizeLegacyArgs maps single-dash long flags to cobra's double-dash form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "backend", "source", "target", "strategy", "save", "capture", "env-file"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}
