// Command pagetl translates HTML pages in place.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   pagetl.Name,
		Short: pagetl.Description,
		Long: `pagetl extracts the readable text of an HTML page, detects its language,
translates it and writes the translations back in place.

Inline <code> spans, surrounding whitespace and the page structure are kept.
Settings come from pagetl.yaml, .env and PAGETL_* environment variables;
flags override all of them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default: ./"+config.DefaultFileName+" if present)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newTranslateCmd(g),
		newExtractCmd(g),
		newServeCmd(g),
		newVersionCmd(),
	)
	return root
}

// load reads .env, the config file and the environment, then applies the
// global flags. Logs go to stderr; quiet keeps only errors unless a level
// was given explicitly.
func (g *globals) load(stderr io.Writer, quiet bool) (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case g.logLevel != "":
		cfg.Log.Level = g.logLevel
	case quiet:
		cfg.Log.Level = "error"
	}
	logger, err := cfg.Logger(stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", pagetl.Name, pagetl.Version)
			if commit := pagetl.Revision(); commit != "" {
				fmt.Fprintf(out, "  commit:  %s\n", commit)
			}
			if pagetl.BuildDate != "" {
				fmt.Fprintf(out, "  built:   %s\n", pagetl.BuildDate)
			}
		},
	}
}
