package domain

import "errors"

// ErrInvalidPath is returned when a path is malformed or its parent is not registered.
var ErrInvalidPath = errors.New("invalid path")

// ErrNotFound is returned when a node path or control label is not registered.
var ErrNotFound = errors.New("not found")

// ErrTypeMismatch is returned when a field is not valid for the node's type.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrValidation is returned for malformed payloads, e.g. mismatched point and color counts.
var ErrValidation = errors.New("validation failed")

// ErrReentrantTransaction is returned when a transaction is opened from inside
// another active transaction on the same manager.
var ErrReentrantTransaction = errors.New("reentrant transaction")

// ErrIndexOutOfRange is returned by frame sources for an index outside [0, NumFrames).
var ErrIndexOutOfRange = errors.New("frame index out of range")

// ErrControlDisabled is returned when an interactive change targets a disabled control.
var ErrControlDisabled = errors.New("control disabled")
