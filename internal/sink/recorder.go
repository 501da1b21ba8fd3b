package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/danmuck/oestream/internal/protocol"
)

var ErrRecorderClosed = errors.New("sink: recorder closed")

// Recorder appends every record to a zstd compressed msgpack stream.
type Recorder struct {
	mu     sync.Mutex
	zw     *zstd.Encoder
	enc    *msgpack.Encoder
	out    io.Closer
	now    func() time.Time
	log    zerolog.Logger
	count  uint64
	err    error
	closed bool
}

type RecorderOption func(*Recorder)

func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

func WithRecorderLogger(l zerolog.Logger) RecorderOption {
	return func(r *Recorder) { r.log = l }
}

// NewRecorder writes to w; Close also closes w when it is an io.Closer.
func NewRecorder(w io.Writer, opts ...RecorderOption) (*Recorder, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("sink: zstd writer: %w", err)
	}
	r := &Recorder{
		zw:  zw,
		enc: msgpack.NewEncoder(zw),
		now: time.Now,
		log: log.Logger.With().Str("component", "sink.recorder").Logger(),
	}
	if c, ok := w.(io.Closer); ok {
		r.out = c
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func CreateRecorder(path string, opts ...RecorderOption) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: create recording: %w", err)
	}
	r, err := NewRecorder(f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) adapter() recordAdapter {
	return recordAdapter{now: r.now, emit: r.write}
}

func (r *Recorder) UpdatePlot(samples []float32, sampleRate float64) {
	r.adapter().UpdatePlot(samples, sampleRate)
}

func (r *Recorder) OnEvent(ev protocol.DigitalEvent)   { r.adapter().OnEvent(ev) }
func (r *Recorder) OnSpike(sp protocol.SpikeEvent)     { r.adapter().OnSpike(sp) }
func (r *Recorder) OnMessage(msg protocol.TextMessage) { r.adapter().OnMessage(msg) }

// write latches the first error; later records are discarded.
func (r *Recorder) write(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}
	if err := r.enc.Encode(&rec); err != nil {
		r.err = fmt.Errorf("sink: encode record: %w", err)
		r.log.Error().Err(err).Msg("recording stopped")
		return
	}
	r.count++
}

func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Flush pushes buffered records to the underlying writer.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	return r.zw.Flush()
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.zw.Close()
	if r.out != nil {
		if cerr := r.out.Close(); err == nil {
			err = cerr
		}
	}
	if err == nil {
		err = r.err
	}
	return err
}

func scan(rd io.Reader, fn func(Record)) error {
	zr, err := zstd.NewReader(rd)
	if err != nil {
		return fmt.Errorf("sink: zstd reader: %w", err)
	}
	defer zr.Close()
	dec := msgpack.NewDecoder(zr)
	for i := 0; ; i++ {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("sink: decode record %d: %w", i, err)
		}
		fn(rec)
	}
}

// Replay decodes a recording and applies each record to s in order. It
// returns the number of records applied.
func Replay(rd io.Reader, s Sink) (int, error) {
	n := 0
	err := scan(rd, func(rec Record) {
		if rec.Apply(s) {
			n++
		}
	})
	return n, err
}

// ReadAll returns every record of a recording.
func ReadAll(rd io.Reader) ([]Record, error) {
	var out []Record
	err := scan(rd, func(rec Record) { out = append(out, rec) })
	return out, err
}
