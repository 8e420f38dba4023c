package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/config"
	"github.com/ZaguanLabs/pagetl/document"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cyan   = color.New(color.Bold, color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

type translateFlags struct {
	target   string
	mode     string
	provider string
	model    string
	apiKey   string
	stream   bool
	redisURL string
	output   string
	text     string
	quiet    bool
}

func newTranslateCmd(g *globals) *cobra.Command {
	f := &translateFlags{}

	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate an HTML page (stdin when no file is given) or a snippet given with --text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr(), f.quiet)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("text") {
				if len(args) > 0 {
					return fmt.Errorf("--text and a file argument are mutually exclusive")
				}
				return translateText(cmd, cfg, logger, f.text, f.quiet)
			}

			input, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			page, err := document.Parse(strings.NewReader(input), append(cfg.DocumentOptions(), document.WithLogger(logger))...)
			if err != nil {
				return err
			}

			svc, err := newService(cfg, logger)
			if err != nil {
				return err
			}
			defer svc.DestroyAll()

			publisher, closePublisher, err := newEventPublisher(cfg, logger)
			if err != nil {
				return err
			}
			defer closePublisher()

			stderr := cmd.ErrOrStderr()
			opts := []pagetl.Option{
				pagetl.WithTargetLanguage(cfg.TargetLanguage),
				pagetl.WithStreaming(cfg.Streaming),
				pagetl.WithLogger(logger),
			}
			if publisher != nil {
				opts = append(opts, pagetl.WithObserver(publisher))
			}
			if !f.quiet {
				opts = append(opts, pagetl.WithObserver(newStatusPrinter(stderr)))
				fmt.Fprintf(stderr, "Translating %s to %s...\n", cyan(name), cyan(cfg.TargetLanguage))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			start := time.Now()
			result, runErr := pagetl.NewOrchestrator(svc, pagetl.StaticTarget(page), opts...).Run(ctx)

			// Units replaced before a failure stay replaced, so the page is
			// written either way.
			if err := writeOutput(cmd, f.output, page); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("translation failed: %w", runErr)
			}

			if !f.quiet {
				fmt.Fprintf(stderr, "\nDone in %v\n", time.Since(start).Round(time.Millisecond))
				fmt.Fprintf(stderr, "  Source:       %s\n", orDash(result.SourceLanguage))
				fmt.Fprintf(stderr, "  Units found:  %d\n", result.Units)
				fmt.Fprintf(stderr, "  Replaced:     %d\n", result.Replace.Applied)
				if n := len(result.Replace.Skipped); n > 0 {
					fmt.Fprintf(stderr, "  Skipped:      %s\n", yellow(n))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.target, "target", "t", "", "Target language code (default: "+pagetl.DefaultTargetLanguage+")")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Extraction granularity: block or node")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Translation provider: openai or mock")
	cmd.Flags().StringVar(&f.model, "model", "", "OpenAI model to use")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "OpenAI API key (default: OPENAI_API_KEY env)")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "Use streaming translation")
	cmd.Flags().StringVar(&f.redisURL, "redis-url", "", "Publish run events to this Redis server")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&f.text, "text", "", "Translate this text instead of a page")
	cmd.Flags().BoolVar(&f.quiet, "quiet", false, "Suppress progress output")
	return cmd
}

// apply copies the flags that were set over the loaded configuration.
func (f *translateFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.TargetLanguage = f.target
	}
	if flags.Changed("mode") {
		cfg.Mode = f.mode
	}
	if flags.Changed("provider") {
		cfg.Provider.Name = f.provider
	}
	if flags.Changed("model") {
		cfg.Provider.Model = f.model
	}
	if flags.Changed("api-key") {
		cfg.Provider.APIKey = f.apiKey
	}
	if flags.Changed("stream") {
		cfg.Streaming = f.stream
	}
	if flags.Changed("redis-url") {
		cfg.Redis.URL = f.redisURL
	}
	return cfg.Validate()
}

// translateText prints the translation of a snippet.
func translateText(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, text string, quiet bool) error {
	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.DestroyAll()

	o := pagetl.NewOrchestrator(svc, pagetl.StaticTarget(nil),
		pagetl.WithTargetLanguage(cfg.TargetLanguage),
		pagetl.WithLogger(logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := o.TranslateText(ctx, text)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	if !quiet {
		stderr := cmd.ErrOrStderr()
		if res.AlreadyInTarget {
			fmt.Fprintf(stderr, "Already in %s\n", cyan(res.TargetLanguage))
		} else {
			fmt.Fprintf(stderr, "%s -> %s\n", cyan(res.SourceLanguage), cyan(res.TargetLanguage))
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	return err
}

func readInput(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(args[0]) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return "", "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), filepath.Base(args[0]), nil
}

func writeOutput(cmd *cobra.Command, path string, page *document.Page) error {
	out, err := page.HTML()
	if err != nil {
		return err
	}
	if path == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

// newStatusPrinter reports run progress as colored status lines.
func newStatusPrinter(w io.Writer) pagetl.Observer {
	var mu sync.Mutex
	return pagetl.ObserverFunc(func(ev pagetl.Event) {
		mu.Lock()
		defer mu.Unlock()

		switch ev.Kind {
		case pagetl.EventStatus:
			switch ev.Status {
			case pagetl.StatusCompleted:
				fmt.Fprintf(w, "  %s\n", green(ev.Status))
			case pagetl.StatusError:
				fmt.Fprintf(w, "  %s: %v\n", red(ev.Status), ev.Err)
			default:
				fmt.Fprintf(w, "  %s\n", ev.Status)
			}
		case pagetl.EventLanguageDetected:
			fmt.Fprintf(w, "  detected %s (%.0f%%)\n", cyan(ev.Language), ev.Confidence*100)
		case pagetl.EventProgress:
			fmt.Fprintf(w, "  %s model %.0f%%\n", ev.ModelType, ev.Progress*100)
		}
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
