package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audiosub/internal/subtitles"
)

func newModesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "modes",
		Short:       "List translation modes",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(subtitles.Modes))
			for _, mode := range subtitles.Modes {
				rows = append(rows, []string{mode.String(), mode.Label()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Mode", "Output"}, rows, nil))
			return nil
		},
	}
}
