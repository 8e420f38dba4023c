package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/document"
	"github.com/spf13/cobra"
)

type extractOutput struct {
	InputFile string        `json:"input_file"`
	Mode      document.Mode `json:"mode"`
	UnitCount int           `json:"unit_count"`
	Units     []pagetl.Unit `json:"units"`
}

func newExtractCmd(g *globals) *cobra.Command {
	var (
		mode    string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Show the units a translation would send, without translating",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mode") {
				cfg.Mode = mode
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			input, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			page, err := document.Parse(strings.NewReader(input), append(cfg.DocumentOptions(), document.WithLogger(logger))...)
			if err != nil {
				return err
			}
			units := page.Extract()

			stdout := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(extractOutput{
					InputFile: name,
					Mode:      page.Mode(),
					UnitCount: len(units),
					Units:     units,
				})
			}

			fmt.Fprintf(stdout, "Dry run: %s (%s mode)\n", name, page.Mode())
			fmt.Fprintf(stdout, "Found %d translatable units:\n\n", len(units))
			for i, u := range units {
				text := u.Text
				if len([]rune(text)) > 60 {
					text = string([]rune(text)[:57]) + "..."
				}
				fmt.Fprintf(stdout, "%3d. %q\n", i+1, text)
				fmt.Fprintf(stdout, "     %s\n", u.Locator)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Extraction granularity: block or node")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output units as JSON")
	return cmd
}
