package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuck/oestream/internal/control"
	"github.com/danmuck/oestream/internal/observability"
	"github.com/danmuck/oestream/internal/transport"
)

func controlCmd(root *rootOptions) *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "control <command...>",
		Short: "Send a remote-control command and print the reply",
		Long: `Send one raw command string to the server's remote-control endpoint
and print the reply verbatim.

Examples:
  oestream control StartAcquisition
  oestream control StartRecord RecDir=/data CreateNewDir=1
  oestream control IsAcquiring`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Control.Endpoint = endpoint
			}

			dialer, err := transport.NewZMQDialer(cfg.Stream.Security)
			if err != nil {
				return err
			}
			defer dialer.Close()

			client, err := control.New(cfg.Control, dialer, control.WithLogger(observability.Component("control")))
			if err != nil {
				return err
			}
			defer client.Close()

			reply, err := client.Do(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "control endpoint (overrides [control] endpoint)")
	return cmd
}
