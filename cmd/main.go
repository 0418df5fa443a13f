// @title                       SMARTi EMS API
// @version                     1.0
// @description                 Household power budget controller for Home Assistant.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pissten/SMARTi-EMS/internal/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts config.Options

	root := &cobra.Command{
		Use:          "ems",
		Short:        "SMARTi power budget controller",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "directory holding config.yml (default ./configs)")
	root.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file, overrides --config-dir")
	root.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file (default .env)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the periodic control loop",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "step",
			Short: "Run a single control cycle and print its report",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runStep(cmd.Context(), opts, cmd.OutOrStdout())
			},
		},
		newConfigCmd(&opts),
	)
	return root
}

func newConfigCmd(opts *config.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the stored budget configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored configuration and runtime state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runConfigShow(c.Context(), *opts, c.OutOrStdout())
		},
	})
	return cmd
}
