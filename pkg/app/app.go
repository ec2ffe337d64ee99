// Package app is the small application bootstrapper shared by every
// echoryn/conductor binary (cmd/conductord, cmd/golem): it wires a cobra
// root command around a RunFunc, binds viper to the command's flags, and
// normalizes flag names the same way across every entrypoint.
package app

import (
	"fmt"
	"os"

	"github.com/kiosk404/echoryn/pkg/utils/cliflag"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunFunc is the entrypoint body a binary supplies; basename is the
// process's binary name, used for default log-file naming.
type RunFunc func(basename string) error

// Flagger is implemented by an options struct that exposes named flag
// groups and validates/defaults itself before Run.
type Flagger interface {
	Flags() cliflag.NamedFlagSets
	Complete() error
}

// App wraps a cobra.Command with echoryn's conventions.
type App struct {
	name        string
	basename    string
	description string
	runFunc     RunFunc
	options     Flagger
	validArgs   cobra.PositionalArgs
	cmd         *cobra.Command
}

// Option configures an App at construction time.
type Option func(*App)

// WithOptions attaches a Flagger-compatible options struct.
func WithOptions(o Flagger) Option { return func(a *App) { a.options = o } }

// WithDescription sets the long description shown in --help.
func WithDescription(d string) Option { return func(a *App) { a.description = d } }

// WithRunFunc sets the entrypoint body.
func WithRunFunc(f RunFunc) Option { return func(a *App) { a.runFunc = f } }

// WithDefaultValidArgs restricts positional args to none, the default for
// long-running server processes.
func WithDefaultValidArgs() Option {
	return func(a *App) { a.validArgs = cobra.NoArgs }
}

// NewApp builds an App and its backing cobra.Command.
func NewApp(name, basename string, opts ...Option) *App {
	a := &App{name: name, basename: basename}
	for _, opt := range opts {
		opt(a)
	}

	cmd := &cobra.Command{
		Use:          basename,
		Short:        name,
		Long:         a.description,
		Args:         a.validArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.options != nil {
				if err := a.options.Complete(); err != nil {
					return err
				}
			}
			if a.runFunc != nil {
				return a.runFunc(a.basename)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)
	if a.options != nil {
		for _, name := range a.options.Flags().Order() {
			flags.AddFlagSet(a.options.Flags().FlagSet(name))
		}
	}
	_ = viper.BindPFlags(flags)

	a.cmd = cmd
	return a
}

// Run executes the command, exiting the process with status 1 on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command exposes the underlying cobra command, e.g. for adding subcommands.
func (a *App) Command() *cobra.Command { return a.cmd }
