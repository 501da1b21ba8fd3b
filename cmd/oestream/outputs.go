package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/oestream/internal/auth"
	"github.com/danmuck/oestream/internal/config"
	"github.com/danmuck/oestream/internal/observability"
	"github.com/danmuck/oestream/internal/sink"
)

const shutdownTimeout = 5 * time.Second

// outputs is the sink fan-out plus whatever it owns.
type outputs struct {
	sink    sink.Sink
	closers []func() error
}

func openOutputs(cfg config.Config, logger zerolog.Logger) (*outputs, error) {
	out := &outputs{}
	sinks := []sink.Sink{sink.NewLog(logger)}

	if cfg.Recorder.Enabled {
		rec, err := sink.CreateRecorder(cfg.Recorder.Path, sink.WithRecorderLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.Recorder.Path).Msg("recording records")
		sinks = append(sinks, rec)
		out.closers = append(out.closers, rec.Close)
	}

	if cfg.Observability.Enabled {
		observability.RegisterMetrics()
		var feed http.Handler
		if cfg.Observability.Feed {
			hub := sink.NewFeedHub(
				sink.WithFeedBuffer(cfg.Observability.FeedBuffer),
				sink.WithFeedLogger(logger),
			)
			feed = hub
			sinks = append(sinks, hub)
			out.closers = append(out.closers, func() error {
				hub.Close()
				return nil
			})
		}
		var opts []observability.RouterOption
		if cfg.Observability.Token != "" {
			opts = append(opts, observability.WithAuth(auth.StaticToken{Token: cfg.Observability.Token}))
		}
		srv := observability.NewServer(cfg.Observability.Addr, observability.Component("http"), feed, opts...)
		if _, err := srv.Start(); err != nil {
			_ = out.Close()
			return nil, err
		}
		// The server goes first so no feed client outlives the hub.
		out.closers = append([]func() error{func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		}}, out.closers...)
	}

	out.sink = sink.NewMulti(sinks...)
	return out, nil
}

func (o *outputs) Close() error {
	var errs []error
	for _, fn := range o.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	o.closers = nil
	return errors.Join(errs...)
}
