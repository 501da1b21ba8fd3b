package config

import (
	"fmt"
	"os"
)

func Template() string {
	return template
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const template = `# oestream client configuration. Omitted keys keep their defaults.

[stream]
data_endpoint = "tcp://localhost:5556"
event_endpoint = "tcp://localhost:5557"
application = "Plot Process"
heartbeat_interval = "2s"
reconnect_after = "10s"
# Pacing of overdue checks while a reply is outstanding.
retry_delay = "1s"
retry_multiplier = 1.0
poll_timeout = "10ms"
max_drain = 256
monitored_channel = 1
event_channel = 1
# Probability per cycle of sending a synthetic TTL event.
test_event_rate = 0.0

[stream.security]
mode = "development"
curve = false
# server_public_key = ""
# client_public_key = ""
# client_secret_key = ""

[listener]
endpoint = "tcp://localhost:5557"
poll_timeout = "100ms"

[control]
endpoint = "tcp://localhost:5556"
timeout = "2500ms"
retries = 3

[recorder]
enabled = false
path = "oestream.rec.zst"

[observability]
enabled = false
addr = "127.0.0.1:9464"
feed = true
feed_buffer = 256
# Bearer token required on /metrics and /feed when set.
# token = ""
`
