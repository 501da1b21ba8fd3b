// Package config loads oestream.toml. Keys absent from the file keep the
// defaults of the package that owns them.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/oestream/internal/control"
	"github.com/danmuck/oestream/internal/listener"
	"github.com/danmuck/oestream/internal/params"
	"github.com/danmuck/oestream/internal/session"
	"github.com/danmuck/oestream/internal/transport"
)

var ErrInvalid = errors.New("config: invalid")

type RecorderConfig struct {
	Enabled bool
	Path    string
}

type ObservabilityConfig struct {
	Enabled    bool
	Addr       string
	Feed       bool
	FeedBuffer int
	// Token, when set, is required on /metrics and /feed.
	Token string
}

// Config is the whole client configuration.
type Config struct {
	Stream        session.Config
	Params        params.Params
	Listener      listener.Config
	Control       control.Config
	Recorder      RecorderConfig
	Observability ObservabilityConfig
}

func Default() Config {
	p := params.Default()
	stream := session.DefaultConfig()
	stream.Security.Mode = transport.SecurityModeDevelopment
	p.Application = stream.Application
	return Config{
		Stream:   stream,
		Params:   p,
		Listener: listener.DefaultConfig(),
		Control:  control.DefaultConfig(),
		Recorder: RecorderConfig{Path: "oestream.rec.zst"},
		Observability: ObservabilityConfig{
			Addr:       "127.0.0.1:9464",
			Feed:       true,
			FeedBuffer: 256,
		},
	}
}

type fileConfig struct {
	Stream        streamFile        `toml:"stream"`
	Listener      listenerFile      `toml:"listener"`
	Control       controlFile       `toml:"control"`
	Recorder      recorderFile      `toml:"recorder"`
	Observability observabilityFile `toml:"observability"`
}

type streamFile struct {
	DataEndpoint      string       `toml:"data_endpoint"`
	EventEndpoint     string       `toml:"event_endpoint"`
	Application       string       `toml:"application"`
	HeartbeatInterval string       `toml:"heartbeat_interval"`
	ReconnectAfter    string       `toml:"reconnect_after"`
	RetryDelay        string       `toml:"retry_delay"`
	RetryMultiplier   float64      `toml:"retry_multiplier"`
	RetryMaxDelay     string       `toml:"retry_max_delay"`
	RetryJitter       bool         `toml:"retry_jitter"`
	PollTimeout       string       `toml:"poll_timeout"`
	MaxDrain          int          `toml:"max_drain"`
	MaxFrameBytes     int          `toml:"max_frame_bytes"`
	MonitoredChannel  int          `toml:"monitored_channel"`
	EventChannel      int          `toml:"event_channel"`
	TestEventRate     float64      `toml:"test_event_rate"`
	Security          securityFile `toml:"security"`
}

type securityFile struct {
	Mode            string `toml:"mode"`
	Curve           bool   `toml:"curve"`
	ServerPublicKey string `toml:"server_public_key"`
	ClientPublicKey string `toml:"client_public_key"`
	ClientSecretKey string `toml:"client_secret_key"`
}

type listenerFile struct {
	Endpoint    string   `toml:"endpoint"`
	Topics      []string `toml:"topics"`
	PollTimeout string   `toml:"poll_timeout"`
	MaxDrain    int      `toml:"max_drain"`
}

type controlFile struct {
	Endpoint string `toml:"endpoint"`
	Timeout  string `toml:"timeout"`
	Retries  int    `toml:"retries"`
}

type recorderFile struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type observabilityFile struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Feed       bool   `toml:"feed"`
	FeedBuffer int    `toml:"feed_buffer"`
	Token      string `toml:"token"`
}

// Load decodes path over Default and validates the result.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := apply(Default(), raw, meta)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode is Load for an in-memory document.
func Decode(doc string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(doc, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	cfg, err := apply(Default(), raw, meta)
	if err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%w: unknown keys: %s", ErrInvalid, strings.Join(keys, ", "))
	}
	o := overlay{meta: meta}

	s, st := &cfg.Stream, raw.Stream
	o.setString(&s.DataEndpoint, st.DataEndpoint, "stream", "data_endpoint")
	o.setString(&s.EventEndpoint, st.EventEndpoint, "stream", "event_endpoint")
	o.setString(&s.Application, st.Application, "stream", "application")
	o.setDuration(&s.HeartbeatInterval, st.HeartbeatInterval, "stream", "heartbeat_interval")
	o.setDuration(&s.ReconnectAfter, st.ReconnectAfter, "stream", "reconnect_after")
	o.setDuration(&s.HeartbeatRetry.InitialDelay, st.RetryDelay, "stream", "retry_delay")
	o.setFloat(&s.HeartbeatRetry.Multiplier, st.RetryMultiplier, "stream", "retry_multiplier")
	o.setDuration(&s.HeartbeatRetry.MaxDelay, st.RetryMaxDelay, "stream", "retry_max_delay")
	o.setBool(&s.HeartbeatRetry.Jitter, st.RetryJitter, "stream", "retry_jitter")
	o.setDuration(&s.PollTimeout, st.PollTimeout, "stream", "poll_timeout")
	o.setInt(&s.MaxDrain, st.MaxDrain, "stream", "max_drain")
	o.setInt(&s.Limits.MaxFrameBytes, st.MaxFrameBytes, "stream", "max_frame_bytes")
	cfg.Params.Application = s.Application
	o.setInt(&cfg.Params.MonitoredChannel, st.MonitoredChannel, "stream", "monitored_channel")
	o.setInt(&cfg.Params.EventChannel, st.EventChannel, "stream", "event_channel")
	o.setFloat(&cfg.Params.TestEventRate, st.TestEventRate, "stream", "test_event_rate")

	sec, sf := &s.Security, st.Security
	if o.defined("stream", "security", "mode") {
		sec.Mode = transport.NormalizeSecurityMode(transport.SecurityMode(sf.Mode))
	}
	o.setBool(&sec.Curve.Enabled, sf.Curve, "stream", "security", "curve")
	o.setString(&sec.Curve.ServerPublicKey, sf.ServerPublicKey, "stream", "security", "server_public_key")
	o.setString(&sec.Curve.ClientPublicKey, sf.ClientPublicKey, "stream", "security", "client_public_key")
	o.setString(&sec.Curve.ClientSecretKey, sf.ClientSecretKey, "stream", "security", "client_secret_key")

	l, lf := &cfg.Listener, raw.Listener
	o.setString(&l.Endpoint, lf.Endpoint, "listener", "endpoint")
	if o.defined("listener", "topics") {
		l.Topics = normalizeTopics(lf.Topics)
	}
	o.setDuration(&l.PollTimeout, lf.PollTimeout, "listener", "poll_timeout")
	o.setInt(&l.MaxDrain, lf.MaxDrain, "listener", "max_drain")

	c, cf := &cfg.Control, raw.Control
	o.setString(&c.Endpoint, cf.Endpoint, "control", "endpoint")
	o.setDuration(&c.Timeout, cf.Timeout, "control", "timeout")
	o.setInt(&c.Retries, cf.Retries, "control", "retries")

	o.setBool(&cfg.Recorder.Enabled, raw.Recorder.Enabled, "recorder", "enabled")
	o.setString(&cfg.Recorder.Path, raw.Recorder.Path, "recorder", "path")

	ob, of := &cfg.Observability, raw.Observability
	o.setBool(&ob.Enabled, of.Enabled, "observability", "enabled")
	o.setString(&ob.Addr, of.Addr, "observability", "addr")
	o.setBool(&ob.Feed, of.Feed, "observability", "feed")
	o.setInt(&ob.FeedBuffer, of.FeedBuffer, "observability", "feed_buffer")
	o.setString(&ob.Token, of.Token, "observability", "token")

	if o.err != nil {
		return Config{}, o.err
	}
	return cfg, nil
}

// Validate checks every section; the stream section also checks security.
func Validate(cfg Config) error {
	if err := cfg.Stream.Validate(); err != nil {
		return fmt.Errorf("[stream]: %w", err)
	}
	probe := cfg.Params
	if err := probe.Apply(map[string]any{
		params.KeyMonitoredChannel: cfg.Params.MonitoredChannel,
		params.KeyEventChannel:     cfg.Params.EventChannel,
		params.KeyTestEventRate:    cfg.Params.TestEventRate,
	}); err != nil {
		return fmt.Errorf("[stream]: %w", err)
	}
	if err := cfg.Listener.Validate(); err != nil {
		return fmt.Errorf("[listener]: %w", err)
	}
	if err := cfg.Control.Validate(); err != nil {
		return fmt.Errorf("[control]: %w", err)
	}
	if cfg.Recorder.Enabled && strings.TrimSpace(cfg.Recorder.Path) == "" {
		return fmt.Errorf("%w: [recorder] path required when enabled", ErrInvalid)
	}
	if cfg.Observability.Enabled && strings.TrimSpace(cfg.Observability.Addr) == "" {
		return fmt.Errorf("%w: [observability] addr required when enabled", ErrInvalid)
	}
	if cfg.Observability.FeedBuffer <= 0 {
		return fmt.Errorf("%w: [observability] feed_buffer must be > 0", ErrInvalid)
	}
	return nil
}

func normalizeTopics(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		out = append(out, strings.TrimSpace(t))
	}
	return out
}
