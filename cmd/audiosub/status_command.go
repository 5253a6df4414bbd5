package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audiosub/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkModel bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration and readiness checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			gem := cfg.GetGemini()
			maxSeconds := "unlimited"
			if cfg.Recording.MaxSeconds > 0 {
				maxSeconds = strconv.Itoa(cfg.Recording.MaxSeconds) + "s"
			}
			settings := [][]string{
				{"Model", gem.Model},
				{"Endpoint", gem.BaseURL},
				{"Default mode", cfg.Subtitles.DefaultMode},
				{"Output directory", cfg.Paths.OutputDir},
				{"Capture input", cfg.Recording.InputFormat + ":" + cfg.Recording.InputDevice},
				{"Recording limit", maxSeconds},
				{"Hotplug watch", yesNo(cfg.Recording.WatchHotplug)},
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, settings, nil))
			fmt.Fprintln(out)

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{CheckModel: checkModel})
			lines := renderSectionHeader("Readiness", colorize)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if !checkModel {
				lines = append(lines, renderStatusLine("Gemini model", statusInfo, "not checked (use --check-model)", colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if !preflight.AllPassed(results) {
				return errors.New("one or more readiness checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkModel, "check-model", false, "Verify the API key and model with a live request")
	return cmd
}
