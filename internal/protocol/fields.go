package protocol

import (
	"encoding/binary"
	"math"
)

// Reader walks a little-endian buffer field by field. The first short read
// latches an error naming the field; later reads return zero values.
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = &DecodeError{Field: field, Offset: r.off, Need: n, Have: len(r.buf) - r.off}
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// Uint8 reads one byte.
func (r *Reader) Uint8(field string) uint8 {
	b := r.take(1, field)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16(field string) uint16 {
	b := r.take(2, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64(field string) uint64 {
	b := r.take(8, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Int64 reads a little-endian int64.
func (r *Reader) Int64(field string) int64 {
	return int64(r.Uint64(field))
}

// Float32 reads a little-endian IEEE 754 float32.
func (r *Reader) Float32(field string) float32 {
	b := r.take(4, field)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// Float64 reads a little-endian IEEE 754 float64.
func (r *Reader) Float64(field string) float64 {
	return math.Float64frombits(r.Uint64(field))
}

// Float32s reads n consecutive float32 values. The count is checked
// against the remaining bytes before any allocation.
func (r *Reader) Float32s(n int, field string) []float32 {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining()/4 {
		r.err = &DecodeError{Field: field, Offset: r.off, Need: byteCount(n, 4), Have: r.Remaining()}
		return nil
	}
	b := r.take(n*4, field)
	if b == nil {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// byteCount is n*size saturated at math.MaxInt.
func byteCount(n, size int) int {
	if n > math.MaxInt/size {
		return math.MaxInt
	}
	return n * size
}

// Bytes copies n raw bytes.
func (r *Reader) Bytes(n int, field string) []byte {
	b := r.take(n, field)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Skip consumes n padding bytes without interpreting them.
func (r *Reader) Skip(n int, field string) {
	r.take(n, field)
}

func (r *Reader) Offset() int { return r.off }

func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) Err() error { return r.err }

// Done returns the latched error, or a decode error if bytes remain unread.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if rem := r.Remaining(); rem != 0 {
		return &DecodeError{Field: "trailing", Offset: r.off, Need: 0, Have: rem,
			Err: errDanglingBytes(rem)}
	}
	return nil
}
