package cmd

import (
	"fmt"

	coreconductor "github.com/kiosk404/echoryn/internal/hivemind/service/conductor/conductor"
	"github.com/spf13/cobra"
)

func NewCmdSubmit() *cobra.Command {
	var desktopID, outputMode string

	cmd := &cobra.Command{
		Use:   "submit <objective>",
		Short: "Submit an objective to the Conductor Runtime",
		Long:  "submit hands an objective to the running conductord instance and prints the assigned run_id and its initial state.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := SubmitTask(ConductorAddr(), coreconductor.ExecuteTaskRequest{
				DesktopID:  desktopID,
				Objective:  args[0],
				OutputMode: coreconductor.OutputMode(outputMode),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run_id: %s\nstatus: %s\n", state.RunID, state.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&desktopID, "desktop", "", "desktop_id the run executes against (required)")
	cmd.Flags().StringVar(&outputMode, "output-mode", "", `output mode: "auto" or "markdown_report_to_writer"`)
	_ = cmd.MarkFlagRequired("desktop")

	return cmd
}
