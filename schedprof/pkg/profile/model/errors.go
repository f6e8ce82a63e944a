package model

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange          = errors.New("timestamp is out of the profile range")
	ErrNegativeDuration    = errors.New("negative duration")
	ErrNotFinite           = errors.New("time is not a finite number")
	ErrUnordered           = errors.New("sequence is not ordered by timestamp")
	ErrEmptyLanes          = errors.New("lanes must not be empty")
	ErrLaneLabelMismatch   = errors.New("lanes and lane labels differ in length")
	ErrUnmatchedSuspense   = errors.New("suspense resolution without a preceding suspend")
	ErrSuspenseAlreadyOpen = errors.New("suspense boundary is already suspended")
	ErrInvalidCascade      = errors.New("cascading update outside of a render")
	ErrMeasureContainment  = errors.New("measure escapes its render-idle measure")
	ErrBatchOrder          = errors.New("batch uid is not monotonic")
	ErrFrameOverlap        = errors.New("flamechart frames overlap")
	ErrFrameNesting        = errors.New("flamechart frame has no parent frame")
	ErrAmbiguousParent     = errors.New("flamechart frame has more than one parent frame")
	ErrUnknownMeasure      = errors.New("unknown measure type")
)

func newLaneLabelMismatch(lanes, labels int) error {
	return fmt.Errorf("%w: %d lanes, %d labels", ErrLaneLabelMismatch, lanes, labels)
}
