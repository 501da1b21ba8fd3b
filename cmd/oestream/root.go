package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danmuck/oestream/internal/config"
	"github.com/danmuck/oestream/internal/logging"
)

const defaultConfigPath = "oestream.toml"

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "oestream",
		Short: "Client for an acquisition server's ZeroMQ data and event streams",
		Long: `oestream subscribes to an acquisition server's published data stream,
decodes continuous data, digital events and spikes, keeps the request
channel alive with heartbeats, and hands decoded records to local sinks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime()
			if opts.debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to the TOML config file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		streamCmd(opts),
		listenCmd(opts),
		controlCmd(opts),
		replayCmd(),
		configCmd(opts),
		versionCmd(),
	)
	return cmd
}

// load reads the config file. A missing default file falls back to
// defaults; a missing file named with --config is an error.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	if _, err := os.Stat(o.configPath); errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}
