// Package conductorctl implements conductorctl, the operator CLI for
// talking to a running conductord instance: submit an objective, check a
// run's status, following the parent-command-plus-subcommands shape this
// codebase's other *ctl tools use.
package conductorctl

import (
	"io"
	"os"

	"github.com/kiosk404/echoryn/internal/conductorctl/cmd"
	"github.com/kiosk404/echoryn/pkg/utils/cliflag"
	"github.com/spf13/cobra"
)

// NewDefaultConductorCtlCommand creates the `conductorctl` command with
// default arguments.
func NewDefaultConductorCtlCommand() *cobra.Command {
	return NewConductorCtlCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewConductorCtlCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	cmds := &cobra.Command{
		Use:          "conductorctl",
		Short:        "conductorctl talks to a running conductord instance",
		Long:         "conductorctl submits objectives to the Conductor Runtime and inspects run state over its HTTP API.",
		SilenceUsage: true,
		Run:          runHelp,
	}
	cmds.SetIn(in)
	cmds.SetOut(out)
	cmds.SetErr(errOut)

	flags := cmds.PersistentFlags()
	flags.SetNormalizeFunc(cliflag.WarnWordSepNormalizeFunc)
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)
	cmd.AddGlobalFlags(flags)

	cmds.AddCommand(
		cmd.NewCmdSubmit(),
		cmd.NewCmdStatus(),
	)

	return cmds
}

func runHelp(c *cobra.Command, _ []string) {
	_ = c.Help()
}
