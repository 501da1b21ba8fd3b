package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:     "warning",
		EnvLogTimestamp: "false",
		EnvLogNoColor:   "1",
		EnvLogJSON:      "true",
	}
	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnvOverrides(&cfg, func(k string) string { return env[k] })
	if cfg.Level != zerolog.WarnLevel || cfg.Timestamp || !cfg.NoColor || !cfg.JSON {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestApplyEnvOverridesIgnoresGarbage(t *testing.T) {
	cfg := DefaultConfig(ProfileTest)
	ApplyEnvOverrides(&cfg, func(k string) string { return "???" })
	if cfg.Level != zerolog.DebugLevel || cfg.Timestamp || cfg.JSON {
		t.Fatalf("garbage env changed config: %+v", cfg)
	}
}

func TestNewJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: zerolog.WarnLevel, JSON: true, Out: &buf})
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"message":"shown"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestParseLevelAliases(t *testing.T) {
	for raw, want := range map[string]zerolog.Level{
		"off":         zerolog.Disabled,
		" DEBUG ":     zerolog.DebugLevel,
		"diagnostics": zerolog.TraceLevel,
	} {
		got, ok := ParseLevel(raw)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) got=%v ok=%v", raw, got, ok)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("unknown level accepted")
	}
}
