package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tendant/foxml-generator/pkg/generator/config"
	"github.com/tendant/foxml-generator/pkg/generator/questionnaire"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Optional .env with GENERATOR_* and AWS_* variables
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the generator command over the given streams.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var (
		propertiesFile string
		saveFile       string
		verbose        bool
		pause          time.Duration
	)

	rootCmd := &cobra.Command{
		Use:   "foxml-generator",
		Short: "Generate FOXML test files",
		Long: `Generates FOXML 1.1 digital objects for repository ingest testing.

Without --properties the generator asks for its settings interactively and
saves the answers. With --properties it runs unattended from a settings file.
GENERATOR_* environment variables override file values. Interactively they
become the offered defaults and the answers take precedence:

` + config.EnvUsage(),
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(errOut, verbose)

			var (
				settings *config.Settings
				err      error
			)
			if propertiesFile != "" {
				settings, err = config.Load(config.WithFile(propertiesFile))
			} else {
				var base *config.Settings
				base, err = config.Load(config.WithEnv())
				if err != nil {
					return err
				}
				prompter := questionnaire.NewPrompter(in, out, errOut,
					questionnaire.WithPause(func() { time.Sleep(pause) }))
				var answers config.Settings
				answers, err = questionnaire.Run(prompter, *base)
				if err != nil {
					return fmt.Errorf("questionnaire aborted: %w", err)
				}
				settings, err = config.Load(config.WithSettings(answers))
			}
			if err != nil {
				return err
			}

			if saveFile != "" {
				if err := settings.Save(saveFile); err != nil {
					return err
				}
			}
			data, err := settings.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s", data)

			return generate(cmd.Context(), settings, logger, out)
		},
	}

	rootCmd.Flags().StringVarP(&propertiesFile, "properties", "p", "", "settings file (yaml, json, toml or env)")
	rootCmd.Flags().StringVarP(&saveFile, "save", "o", config.DefaultFileName, "where the settings of this run are saved, empty to skip")
	rootCmd.Flags().DurationVar(&pause, "pause", questionnaire.DefaultPause, "wait after a rejected answer")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	return rootCmd
}

func generate(ctx context.Context, settings *config.Settings, logger *slog.Logger, out io.Writer) error {
	plan, err := settings.Plan()
	if err != nil {
		return err
	}
	gen, err := settings.BuildGenerator(ctx, logger)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := gen.Run(ctx, plan)
	fmt.Fprintf(out, "generated %d FOXML files\n", len(result.Files))
	if err != nil {
		return err
	}
	logger.Info("generation finished", "files", len(result.Files), "target", plan.TargetDir, "elapsed", time.Since(started))
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}
