package relink

import (
	"errors"
	"fmt"
)

var (
	ErrMarkerNotFound = errors.New("relink: marker not found")
	ErrInvalidMarkers = errors.New("relink: invalid marker table")
	ErrNoSections     = errors.New("relink: no sections for object")
	ErrMissingInput   = errors.New("relink: missing input")
)

// MarkerError names the marker a template lacks.
type MarkerError struct {
	Marker string
	Text   string
}

func (e *MarkerError) Error() string {
	return fmt.Sprintf("%v: %s %q", ErrMarkerNotFound, e.Marker, e.Text)
}

func (e *MarkerError) Unwrap() error { return ErrMarkerNotFound }
