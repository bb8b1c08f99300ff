package utils

import (
	"errors"
	"fmt"
)

var (
	ErrDecode        = errors.New("raster decode failed")
	ErrWrite         = errors.New("raster write failed")
	ErrConfig        = errors.New("invalid configuration")
	ErrShapeMismatch = errors.New("raster shape mismatch")
)

// DecodeError reports a raster that could be reached but not read:
// unsupported driver, corrupt content or an unexpected band layout.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding raster %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// WriteError always carries the destination path requested by the caller,
// never the temporary file the bands were staged in.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing raster %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWrite }

type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// Shape is a raster size in pixels.
type Shape struct {
	Height, Width int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

type ShapeMismatchError struct {
	What string
	Want Shape
	Got  Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch, expecting %v, actual %v", e.What, e.Want, e.Got)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }
