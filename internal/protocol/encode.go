package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer appends little-endian fields in wire order.
type Writer struct {
	buf []byte
}

func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) Uint8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Uint16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) Uint64(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *Writer) Int64(v int64) *Writer {
	return w.Uint64(uint64(v))
}

func (w *Writer) Float32(v float32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
	return w
}

func (w *Writer) Float64(v float64) *Writer {
	return w.Uint64(math.Float64bits(v))
}

func (w *Writer) Float32s(vs []float32) *Writer {
	for _, v := range vs {
		w.Float32(v)
	}
	return w
}

func (w *Writer) Pad(n int) *Writer {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
	return w
}

func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func errDanglingBytes(n int) error {
	return fmt.Errorf("%d unread bytes after last field", n)
}
