package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the full castctl command tree.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	statusFlags := &StatusFlags{}
	extensionsFlags := &ExtensionsFlags{}
	upgradeFlags := &UpgradeFlags{}

	c := newCommand(globalFlags)

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStatusCommand(c, statusFlags),
		createStartCommand(c),
		createStopCommand(c),
		createRestartCommand(c),
		createBuildCommand(c),
		createSetupCommand(c),
		createResetCommand(c),
		createActivateCommand(c),
		createPluginsCommand(c),
		createExtensionsCommand(c, extensionsFlags),
		createUpgradeCommand(c, upgradeFlags),
		createVersionCommand(c),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "castctl",
		Short: "Control surface for the castd server",
		Long: `Castctl supervises a castd installation: it starts, stops, and reports
on the server process, drives its maintenance modes, and runs the guided
upgrade pipeline.

Examples:
  castctl status --detailed
  castctl start
  castctl activate castd-plugin-clips
  castctl extensions list
  castctl upgrade
  castctl upgrade -- --dry-run     # hand trailing args straight to migration`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to castctl.toml (optional)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "debug logging")
	return root
}

func createStatusCommand(c *command, flags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether castd is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(*flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Detailed, "detailed", false, "include probe details")
	return cmd
}

func createStartCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Spawn a detached castd worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start()
		},
	}
}

func createStopCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Signal castd to shut down gracefully",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop()
		},
	}
}

func createRestartCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Signal castd to restart in place",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Restart()
		},
	}
}

func createBuildCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "build [-- worker args...]",
		Short: "Run the worker's asset build",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Build(cmd.Context(), args)
		},
	}
}

func createSetupCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "setup [-- worker args...]",
		Short: "Run the worker's first-run setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Setup(cmd.Context(), args)
		},
	}
}

func createResetCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [-- worker args...]",
		Short: "Run the worker's reset mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Reset(cmd.Context(), args)
		},
	}
}

func createActivateCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <extension>",
		Short: "Activate an installed extension",
		Long: `Activate an installed extension by name. Theme extensions
(castd-theme-*) are applied through the worker's reset mode with a theme
selection.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Activate(cmd.Context(), args[0], args[1:])
		},
	}
}

func createPluginsCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List plugins known to the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Plugins(cmd.Context(), args)
		},
	}
}

func createExtensionsCommand(c *command, flags *ExtensionsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extensions",
		Short: "Inspect and upgrade installed extensions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Classify the installed extension inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ExtensionsList(cmd.Context(), *flags)
		},
	}
	list.Flags().BoolVar(&flags.JSON, "json", false, "machine-readable output")

	up := &cobra.Command{
		Use:   "upgrade",
		Short: "Check the advisory service and upgrade extensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ExtensionsUpgrade(cmd.Context())
		},
	}

	cmd.AddCommand(list, up)
	return cmd
}

func createUpgradeCommand(c *command, flags *UpgradeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [-- migration args...]",
		Short: "Run the upgrade pipeline",
		Long: `Run the upgrade pipeline: refresh dependencies, upgrade extensions after
confirmation, then hand off to the worker's schema migration. Trailing
arguments after -- skip straight to the migration with those arguments.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Upgrade(cmd.Context(), *flags, args)
		},
	}
	cmd.Flags().BoolVar(&flags.History, "history", false, "print recent upgrade runs instead of upgrading")
	cmd.Flags().IntVar(&flags.HistoryLimit, "history-limit", 20, "number of history entries to print")
	return cmd
}

func createVersionCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the installed application version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Version()
		},
	}
}
