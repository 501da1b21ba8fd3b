package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/oestream/internal/observability"
	"github.com/danmuck/oestream/internal/session"
	"github.com/danmuck/oestream/internal/transport"
)

func streamCmd(root *rootOptions) *cobra.Command {
	var (
		data    string
		events  string
		channel int
	)
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Run the stream session",
		Long: `Subscribe to the data endpoint, keep the event endpoint alive with
heartbeats, and deliver decoded records to the configured sinks until
interrupted.

Examples:
  oestream stream
  oestream stream --data tcp://10.0.0.5:5556 --events tcp://10.0.0.5:5557
  oestream stream --channel 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data") {
				cfg.Stream.DataEndpoint = data
			}
			if cmd.Flags().Changed("events") {
				cfg.Stream.EventEndpoint = events
			}
			if cmd.Flags().Changed("channel") {
				cfg.Params.MonitoredChannel = channel
			}

			logger := observability.Component("stream")
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

			sess, err := session.New(cfg.Stream, dialer, out.sink,
				session.WithLogger(logger),
				session.WithParams(cfg.Params),
			)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger.Info().
				Str("uuid", sess.UUID()).
				Str("data", cfg.Stream.DataEndpoint).
				Str("events", cfg.Stream.EventEndpoint).
				Msg("stream session starting")
			if err := sess.Run(ctx); err != nil {
				return err
			}
			st := sess.State()
			logger.Info().Int64("message_num", st.MessageNum).Uint64("reconnects", st.Reconnects).Msg("stream session stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "data endpoint (overrides [stream] data_endpoint)")
	cmd.Flags().StringVar(&events, "events", "", "event endpoint (overrides [stream] event_endpoint)")
	cmd.Flags().IntVar(&channel, "channel", 1, "monitored channel (overrides [stream] monitored_channel)")
	return cmd
}
