package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewCmdStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <run_id>",
		Short: "Print a run's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := GetTaskState(ConductorAddr(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id:     %s\n", state.RunID)
			fmt.Fprintf(out, "objective:  %s\n", state.Objective)
			fmt.Fprintf(out, "status:     %s\n", state.Status)
			if state.FailReason != "" {
				fmt.Fprintf(out, "fail_reason: %s\n", state.FailReason)
			}
			fmt.Fprintf(out, "agenda (%d items):\n", len(state.Agenda))
			for _, item := range state.Agenda {
				fmt.Fprintf(out, "  - [%s] %s (%s): %s\n", item.Status, item.ItemID, item.Capability, item.Objective)
			}
			fmt.Fprintf(out, "artifacts: %d\n", len(state.Artifacts))
			return nil
		},
	}
	return cmd
}
