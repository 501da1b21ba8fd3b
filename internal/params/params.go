// Package params holds the client-local settings a server may change with a
// param message. Only whitelisted keys are accepted.
package params

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrUnknownParam = errors.New("params: unknown key")
	ErrInvalidParam = errors.New("params: invalid value")
)

const (
	KeyApplication      = "application"
	KeyMonitoredChannel = "monitored_channel"
	KeyEventChannel     = "event_channel"
	KeyTestEventRate    = "test_event_rate"
)

// Params is the mutable client configuration.
type Params struct {
	Application      string
	MonitoredChannel int
	EventChannel     int
	TestEventRate    float64
}

func Default() Params {
	return Params{
		Application:      "Plot Process",
		MonitoredChannel: 1,
		EventChannel:     1,
		TestEventRate:    0,
	}
}

type setter func(p *Params, v any) error

var whitelist = map[string]setter{
	KeyApplication: func(p *Params, v any) error {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidParam, KeyApplication)
		}
		p.Application = strings.TrimSpace(s)
		return nil
	},
	KeyMonitoredChannel: func(p *Params, v any) error {
		n, err := asInt(KeyMonitoredChannel, v)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidParam, KeyMonitoredChannel)
		}
		p.MonitoredChannel = n
		return nil
	},
	KeyEventChannel: func(p *Params, v any) error {
		n, err := asInt(KeyEventChannel, v)
		if err != nil {
			return err
		}
		p.EventChannel = n
		return nil
	},
	KeyTestEventRate: func(p *Params, v any) error {
		f, ok := asFloat(v)
		if !ok || f < 0 || f > 1 {
			return fmt.Errorf("%w: %s must be a number in [0,1]", ErrInvalidParam, KeyTestEventRate)
		}
		p.TestEventRate = f
		return nil
	},
}

// Keys lists the accepted keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(whitelist))
	for k := range whitelist {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Apply validates every key before mutating p, so a rejected update changes nothing.
func (p *Params) Apply(update map[string]any) error {
	keys := make([]string, 0, len(update))
	for k := range update {
		if _, ok := whitelist[k]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParam, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := *p
	for _, k := range keys {
		if err := whitelist[k](&next, update[k]); err != nil {
			return err
		}
	}
	*p = next
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(key string, v any) (int, error) {
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParam, key)
	}
	return int(f), nil
}
