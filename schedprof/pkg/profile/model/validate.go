package model

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// Bounds is the closed time range [Start, End] of a profile.
type Bounds struct {
	Start Milliseconds
	End   Milliseconds
}

func (d *ProfilerData) Bounds() Bounds {
	return Bounds{d.StartTime, d.EndTime()}
}

func finite(t Milliseconds) bool {
	return !math.IsNaN(float64(t)) && !math.IsInf(float64(t), 0)
}

func (b Bounds) Check(t Milliseconds) error {
	if !finite(t) {
		return fmt.Errorf("%w: %v", ErrNotFinite, t)
	}
	if !(t >= b.Start && t <= b.End) {
		return fmt.Errorf("%w: %v is outside of [%v, %v]", ErrOutOfRange, t, b.Start, b.End)
	}
	return nil
}

func (b Bounds) CheckInterval(ts, duration Milliseconds) error {
	if !finite(duration) {
		return fmt.Errorf("%w: duration %v", ErrNotFinite, duration)
	}
	if duration < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeDuration, duration)
	}
	if err := b.Check(ts); err != nil {
		return err
	}
	return b.Check(ts + duration)
}

// CheckSpan checks the start time and duration of a profile.
func CheckSpan(startTime, duration Milliseconds) error {
	if !finite(startTime) || !finite(duration) {
		return fmt.Errorf("%w: profile starts at %v and lasts %v", ErrNotFinite, startTime, duration)
	}
	if duration < 0 {
		return fmt.Errorf("%w: profile duration %v", ErrNegativeDuration, duration)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

func CheckNativeEvent(b Bounds, e *NativeEvent) error {
	if e.Depth < 0 {
		return fmt.Errorf("negative depth %d", e.Depth)
	}
	if !slices.IsSorted(e.Warnings) || len(slices.Compact(slices.Clone(e.Warnings))) != len(e.Warnings) {
		return fmt.Errorf("%w: warnings must be sorted and unique", ErrUnordered)
	}
	return b.CheckInterval(e.Timestamp, e.Duration)
}

func CheckReactEvent(b Bounds, e ReactEvent) error {
	if e == nil {
		return fmt.Errorf("nil react event")
	}
	if lanes, ok := ScheduleLanes(e); ok && len(lanes) == 0 {
		return fmt.Errorf("%s: %w", e.Kind(), ErrEmptyLanes)
	}
	return b.Check(e.Time())
}

func CheckMeasure(b Bounds, m *ReactMeasure) error {
	if _, err := ParseMeasureType(string(m.Type)); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownMeasure, m.Type)
	}
	if _, err := ParseMeasureStatus(string(m.Status)); err != nil {
		return err
	}
	if m.Depth < 0 {
		return fmt.Errorf("negative depth %d", m.Depth)
	}
	if len(m.Lanes) == 0 {
		return fmt.Errorf("%s: %w", m.Type, ErrEmptyLanes)
	}
	return b.CheckInterval(m.Timestamp, m.Duration)
}

func CheckFrame(b Bounds, f *FlamechartStackFrame) error {
	if err := b.CheckInterval(f.Timestamp, f.Duration); err != nil {
		return fmt.Errorf("frame %q: %w", f.Name, err)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// SuspenseTracker follows suspend/resolve pairing over a time ordered event stream.
type SuspenseTracker struct {
	open map[string]Milliseconds
}

func NewSuspenseTracker() *SuspenseTracker {
	return &SuspenseTracker{open: make(map[string]Milliseconds)}
}

func (t *SuspenseTracker) Observe(e ReactEvent) error {
	id, ok := SuspenseID(e)
	if !ok {
		return nil
	}
	since, isOpen := t.open[id]
	switch e.Kind() {
	case EventSuspenseSuspend:
		if isOpen {
			return fmt.Errorf("%w: id %q suspended at %v", ErrSuspenseAlreadyOpen, id, since)
		}
		t.open[id] = e.Time()
	default:
		if !isOpen {
			return fmt.Errorf("%w: %s id %q at %v", ErrUnmatchedSuspense, e.Kind(), id, e.Time())
		}
		if since >= e.Time() {
			return fmt.Errorf("%w: %s id %q at %v does not follow suspend at %v",
				ErrUnmatchedSuspense, e.Kind(), id, e.Time(), since)
		}
		delete(t.open, id)
	}
	return nil
}

// Open returns ids of boundaries which are still suspended, sorted.
func (t *SuspenseTracker) Open() []string {
	res := make([]string, 0, len(t.open))
	for id := range t.open {
		res = append(res, id)
	}
	slices.Sort(res)
	return res
}

////////////////////////////////////////////////////////////////////////////////

// Validate checks every schema invariant of a profile.
// Data that fails validation must never reach renderers or the hover correlator.
func Validate(d *ProfilerData) error {
	if d == nil {
		return fmt.Errorf("nil profiler data")
	}
	if err := CheckSpan(d.StartTime, d.Duration); err != nil {
		return err
	}
	b := d.Bounds()

	for i := range d.NativeEvents {
		e := &d.NativeEvents[i]
		if err := CheckNativeEvent(b, e); err != nil {
			return fmt.Errorf("nativeEvents[%d]: %w", i, err)
		}
		if i > 0 && e.Timestamp < d.NativeEvents[i-1].Timestamp {
			return fmt.Errorf("nativeEvents[%d]: %w", i, ErrUnordered)
		}
	}

	suspense := NewSuspenseTracker()
	for i, e := range d.ReactEvents {
		if err := CheckReactEvent(b, e); err != nil {
			return fmt.Errorf("reactEvents[%d]: %w", i, err)
		}
		if i > 0 && e.Time() < d.ReactEvents[i-1].Time() {
			return fmt.Errorf("reactEvents[%d]: %w", i, ErrUnordered)
		}
		if err := suspense.Observe(e); err != nil {
			return fmt.Errorf("reactEvents[%d]: %w", i, err)
		}
	}

	for i := range d.Measures {
		m := &d.Measures[i]
		if err := CheckMeasure(b, m); err != nil {
			return fmt.Errorf("measures[%d]: %w", i, err)
		}
		if i > 0 && m.Timestamp < d.Measures[i-1].Timestamp {
			return fmt.Errorf("measures[%d]: %w", i, ErrUnordered)
		}
	}
	if err := validateBatches(d.Measures); err != nil {
		return err
	}
	if err := validateCascades(d.ReactEvents, d.Measures); err != nil {
		return err
	}

	if err := validateFlamechart(b, d.Flamechart); err != nil {
		return err
	}

	for i := range d.OtherUserTimingMarks {
		m := &d.OtherUserTimingMarks[i]
		if err := b.Check(m.Timestamp); err != nil {
			return fmt.Errorf("otherUserTimingMarks[%d]: %w", i, err)
		}
		if i > 0 && m.Timestamp < d.OtherUserTimingMarks[i-1].Timestamp {
			return fmt.Errorf("otherUserTimingMarks[%d]: %w", i, ErrUnordered)
		}
	}

	return nil
}

func validateBatches(measures []ReactMeasure) error {
	idle := make(map[BatchUID]int)
	lastIdle := BatchUID(0)
	for i := range measures {
		m := &measures[i]
		if m.Type != MeasureRenderIdle {
			continue
		}
		if len(idle) > 0 && m.BatchUID <= lastIdle {
			return fmt.Errorf("measures[%d]: %w: batch %d opened after batch %d", i, ErrBatchOrder, m.BatchUID, lastIdle)
		}
		idle[m.BatchUID] = i
		lastIdle = m.BatchUID
	}

	for i := range measures {
		m := &measures[i]
		if m.Type == MeasureRenderIdle {
			continue
		}
		j, ok := idle[m.BatchUID]
		if !ok {
			return fmt.Errorf("measures[%d]: %w: %s refers to batch %d which was never opened", i, ErrBatchOrder, m.Type, m.BatchUID)
		}
		if m.Depth == 0 {
			continue
		}
		container := &measures[j]
		if m.Timestamp < container.Timestamp {
			return fmt.Errorf("measures[%d]: %w: %s starts at %v before %v", i, ErrMeasureContainment, m.Type, m.Timestamp, container.Timestamp)
		}
		if container.Status != MeasureCancelled && m.End() > container.End() {
			return fmt.Errorf("measures[%d]: %w: %s ends at %v after %v", i, ErrMeasureContainment, m.Type, m.End(), container.End())
		}
	}
	return nil
}

func validateCascades(events []ReactEvent, measures []ReactMeasure) error {
	for i, e := range events {
		if !Cascading(e) {
			continue
		}
		t := e.Time()
		n := sort.Search(len(measures), func(j int) bool {
			return measures[j].Timestamp >= t
		})
		inside := slices.ContainsFunc(measures[:n], func(m ReactMeasure) bool {
			return (m.Type == MeasureRenderIdle || m.Type == MeasureRender) && m.Timestamp < t && t < m.End()
		})
		if !inside {
			return fmt.Errorf("reactEvents[%d]: %w: %s at %v", i, ErrInvalidCascade, e.Kind(), t)
		}
	}
	return nil
}

func validateFlamechart(b Bounds, chart Flamechart) error {
	for depth, layer := range chart {
		for i := range layer {
			frame := &layer[i]
			if err := CheckFrame(b, frame); err != nil {
				return fmt.Errorf("flamechart[%d][%d]: %w", depth, i, err)
			}
			if i > 0 {
				prev := &layer[i-1]
				if frame.Timestamp < prev.Timestamp {
					return fmt.Errorf("flamechart[%d][%d]: %w", depth, i, ErrUnordered)
				}
				if frame.Timestamp < prev.End() {
					return fmt.Errorf("flamechart[%d][%d]: %w: %q starts at %v before %q ends at %v",
						depth, i, ErrFrameOverlap, frame.Name, frame.Timestamp, prev.Name, prev.End())
				}
			}
			if depth == 0 {
				continue
			}
			switch chart[depth-1].Containing(frame) {
			case 0:
				return fmt.Errorf("flamechart[%d][%d]: %w: %q at %v", depth, i, ErrFrameNesting, frame.Name, frame.Timestamp)
			case 1:
			default:
				return fmt.Errorf("flamechart[%d][%d]: %w: %q at %v", depth, i, ErrAmbiguousParent, frame.Name, frame.Timestamp)
			}
		}
	}
	return nil
}
