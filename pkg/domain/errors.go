package domain

import "errors"

// ErrUnsupportedValue is returned when a Go value cannot be represented as a Value.
var ErrUnsupportedValue = errors.New("domain: unsupported value")

// ErrInvalidState is returned when an inbound state payload is not a JSON object
// or carries a badly typed topology field.
var ErrInvalidState = errors.New("domain: invalid host state")

// ErrInvalidErrorNotice is returned when a receiveError payload cannot be decoded.
var ErrInvalidErrorNotice = errors.New("domain: invalid error notice")

// ErrInvalidTable is returned when a table content payload cannot be decoded.
var ErrInvalidTable = errors.New("domain: invalid table content")

// ErrSnapshotNotFound is returned when no plugin snapshot exists for an instance.
var ErrSnapshotNotFound = errors.New("domain: snapshot not found")

// ErrTableNotFound is returned when no table content exists for an instance.
var ErrTableNotFound = errors.New("domain: table content not found")
