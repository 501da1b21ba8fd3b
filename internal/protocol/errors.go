package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrFraming        = errors.New("protocol: framing error")
	ErrDecode         = errors.New("protocol: decode error")
	ErrProtocol       = errors.New("protocol: protocol error")
	ErrConnectionLost = errors.New("protocol: connection lost")
	ErrChannel        = errors.New("protocol: channel error")
)

// FramingError reports a message with the wrong number or size of frames.
type FramingError struct {
	Got    int
	Want   int
	Reason string
}

func (e *FramingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s", ErrFraming, e.Reason)
	}
	return fmt.Sprintf("%v: got %d frames, want %d", ErrFraming, e.Got, e.Want)
}

func (e *FramingError) Unwrap() error { return ErrFraming }

// DecodeError names the field that could not be filled from a buffer.
type DecodeError struct {
	Field  string
	Offset int
	Need   int
	Have   int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: field %s: %v", ErrDecode, e.Field, e.Err)
	}
	return fmt.Sprintf("%v: field %s needs %d bytes at offset %d, have %d", ErrDecode, e.Field, e.Need, e.Offset, e.Have)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDecode, e.Err}
	}
	return []error{ErrDecode}
}

// ProtocolError reports a well-formed message the client cannot act on.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrProtocol, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrProtocol, e.Reason)
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProtocol, e.Err}
	}
	return []error{ErrProtocol}
}

// ChannelError reports a transport failure; it ends the loop that saw it.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrChannel, e.Op, e.Err)
}

func (e *ChannelError) Unwrap() []error {
	return []error{ErrChannel, e.Err}
}

// WrapChannel returns nil when err is nil.
func WrapChannel(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ChannelError{Op: op, Err: err}
}

func Framingf(got, want int, format string, args ...any) error {
	return &FramingError{Got: got, Want: want, Reason: fmt.Sprintf(format, args...)}
}

func Decodef(field string, format string, args ...any) error {
	return &DecodeError{Field: field, Err: fmt.Errorf(format, args...)}
}

func Protocolf(format string, args ...any) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// WrapProtocol marks err as a protocol error while keeping it matchable.
func WrapProtocol(err error, reason string) error {
	return &ProtocolError{Reason: reason, Err: err}
}

// Recoverable reports whether err only affects the current message or request.
func Recoverable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrChannel) {
		return false
	}
	return errors.Is(err, ErrFraming) ||
		errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrProtocol) ||
		errors.Is(err, ErrConnectionLost)
}
