package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/testutil/faketransport"
	"github.com/danmuck/oestream/internal/testutil/testlog"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Millisecond
	return cfg
}

func TestDoReturnsReplyVerbatim(t *testing.T) {
	testlog.Start(t)
	d := &faketransport.Dialer{Reply: func(req [][]byte) [][]byte {
		if string(req[0]) == GetRecordingPath {
			return [][]byte{[]byte("  /data/2024-05-01 \n")}
		}
		return [][]byte{[]byte("ok")}
	}}
	c, err := New(DefaultConfig(), d)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Do(context.Background(), GetRecordingPath)
	require.NoError(t, err)
	assert.Equal(t, "  /data/2024-05-01 \n", got)

	got, err = c.Do(context.Background(), "StartRecord RecDir=/tmp")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Len(t, d.Requests(), 1, "healthy socket is reused")
	assert.Equal(t, "tcp://localhost:5556", d.Requests()[0].Endpoint)
}

func TestDoRejectsEmptyCommand(t *testing.T) {
	testlog.Start(t)
	c, err := New(DefaultConfig(), &faketransport.Dialer{})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestDoRecreatesSocketAndGivesUp(t *testing.T) {
	testlog.Start(t)
	d := &faketransport.Dialer{}
	c, err := New(fastConfig(), d)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), IsAcquiring)
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrConnectionLost)
	reqs := d.Requests()
	require.Len(t, reqs, 3)
	for i, r := range reqs {
		assert.True(t, r.Closed(), "attempt %d socket closed", i)
		assert.Len(t, r.Sent(), 1)
	}
}

func TestDoSucceedsOnRetry(t *testing.T) {
	testlog.Start(t)
	calls := 0
	d := &faketransport.Dialer{Reply: func([][]byte) [][]byte {
		calls++
		if calls == 1 {
			return nil
		}
		return [][]byte{[]byte("true")}
	}}
	c, err := New(fastConfig(), d)
	require.NoError(t, err)

	got, err := c.Do(context.Background(), IsRecording)
	require.NoError(t, err)
	assert.Equal(t, "true", got)
	assert.Len(t, d.Requests(), 2)
	assert.True(t, d.Requests()[0].Closed())
}

func TestDoHonoursContext(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := New(DefaultConfig(), &faketransport.Dialer{})
	require.NoError(t, err)
	_, err = c.Do(ctx, StopAcquisition)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoDialFailureIsChannelError(t *testing.T) {
	testlog.Start(t)
	d := &faketransport.Dialer{}
	d.FailDial(errors.New("bad endpoint"))
	c, err := New(DefaultConfig(), d)
	require.NoError(t, err)
	_, err = c.Do(context.Background(), StartAcquisition)
	assert.ErrorIs(t, err, protocol.ErrChannel)
}

func TestKnownCommands(t *testing.T) {
	testlog.Start(t)
	assert.True(t, Known("StartRecord CreateNewDir=1"))
	assert.True(t, Known(IsAcquiring))
	assert.False(t, Known("Reboot"))
	assert.False(t, Known(""))
	assert.Equal(t, "other", metricLabel("Reboot now"))
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.Retries = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	_, err := New(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
