package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/i474232898/nws-weather/internal/app"
	"github.com/i474232898/nws-weather/internal/config"
	"github.com/i474232898/nws-weather/internal/integration"
	"github.com/i474232898/nws-weather/internal/logging"
)

// New returns the root command. Without a subcommand it serves.
func New(version string) *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Poll the configured locations and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), version)
		},
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the resolved locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			entries, err := integration.EntriesFromConfig(cfg.Locations, cfg.Home, nil)
			if err != nil {
				return err
			}

			cmd.Printf("LOCATION\t\tSTATION\n")
			for _, e := range entries {
				station := e.Station
				if station == "" {
					station = "(nearest)"
				}
				cmd.Printf("%-20s\t%s\n", e.Location.Key(), station)
			}
			cmd.Printf("%d location(s) ok\n", len(entries))
			return nil
		},
	}

	root := &cobra.Command{
		Use:          app.AppName,
		Short:        "National Weather Service polling service",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, check)
	return root
}

func runServe(ctx context.Context, version string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg, version, app.AppName)
	return app.New(cfg, logger).Run(ctx)
}
