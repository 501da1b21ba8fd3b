package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/oestream/internal/listener"
	"github.com/danmuck/oestream/internal/observability"
	"github.com/danmuck/oestream/internal/transport"
)

func listenCmd(root *rootOptions) *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Listen to a compact event broadcaster",
		Long: `Subscribe to a compact event broadcaster and deliver TTL, spike and
message records to the configured sinks until interrupted.

Examples:
  oestream listen
  oestream listen --endpoint tcp://10.0.0.5:5557`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Listener.Endpoint = endpoint
			}

			logger := observability.Component("listener")
			out, err := openOutputs(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := out.Close(); err != nil {
					logger.Warn().Err(err).Msg("output close failed")
				}
			}()

			dialer, err := transport.NewZMQDialer(cfg.Stream.Security)
			if err != nil {
				return err
			}
			defer dialer.Close()

			l, err := listener.New(cfg.Listener, dialer, out.sink, listener.WithLogger(logger))
			if err != nil {
				return err
			}
			defer l.Close()
			if err := l.Connect(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger.Info().Str("endpoint", cfg.Listener.Endpoint).Msg("listener starting")
			if err := l.Run(ctx); err != nil {
				return err
			}
			st := l.Stats()
			logger.Info().Uint64("delivered", st.Delivered).Uint64("dropped", st.Dropped).Msg("listener stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "broadcaster endpoint (overrides [listener] endpoint)")
	return cmd
}
