package observability

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/oestream/internal/auth"
	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordStreamMessage("data")
	RecordStreamDrop(protocol.Protocolf("unknown message type %q", "foo"))
	RecordSequenceGap()
	RecordRequest("heartbeat", "sent")
	RecordReconnect("stream")
	RecordListenerMessage("TTL")
	RecordListenerDrop(protocol.Decodef("text", "bad utf-8"))
	RecordControlCommand("IsAcquiring", nil, 12*time.Millisecond)
	RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	families, err := Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "oestream_stream_sequence_gaps_total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sequence gap counter not registered")
	}
}

func TestErrorReason(t *testing.T) {
	testlog.Start(t)
	cases := map[string]error{
		"none":            nil,
		"framing":         protocol.Framingf(1, 2, "short"),
		"decode":          protocol.Decodef("x", "bad"),
		"protocol":        protocol.Protocolf("bad"),
		"connection_lost": fmt.Errorf("%w: gone", protocol.ErrConnectionLost),
		"channel":         protocol.WrapChannel("recv", io.EOF),
		"other":           io.EOF,
	}
	for want, err := range cases {
		if got := ErrorReason(err); got != want {
			t.Fatalf("ErrorReason(%v) got=%s want=%s", err, got, want)
		}
	}
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	feedHits := 0
	feed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		feedHits++
		w.WriteHeader(http.StatusTeapot)
	})
	r := NewRouter(zerolog.Nop(), feed)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("health got=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "oestream_http_requests_total") {
		t.Fatalf("metrics got=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))
	if rec.Code != http.StatusTeapot || feedHits != 1 {
		t.Fatalf("feed not routed got=%d hits=%d", rec.Code, feedHits)
	}
}

func TestRouterAuthGuardsMetricsAndFeed(t *testing.T) {
	testlog.Start(t)
	feed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r := NewRouter(zerolog.Nop(), feed, WithAuth(auth.StaticToken{Token: "s3cret"}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health should stay open got=%d", rec.Code)
	}

	for _, path := range []string{"/metrics", "/feed"} {
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token got=%d", path, rec.Code)
		}
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed?token=s3cret", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("feed with token got=%d", rec.Code)
	}
}
