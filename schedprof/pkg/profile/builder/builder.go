package builder

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
	"github.com/yandex/schedprof/schedprof/pkg/xlog"
)

var (
	ErrFrozen       = errors.New("builder is already frozen")
	ErrUnknownEvent = errors.New("no native event with such index")
)

////////////////////////////////////////////////////////////////////////////////

type Option func(b *Builder)

func WithLogger(l xlog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

////////////////////////////////////////////////////////////////////////////////

type stagedNativeEvent struct {
	event    model.NativeEvent
	warnings map[string]struct{}
}

// Builder is the mutable staging form of model.ProfilerData.
// Records are appended in time order; warnings may be added to native events
// until Freeze. Violations of per-record invariants are rejected on the call
// introducing them, cross-record invariants are checked by Freeze.
type Builder struct {
	logger   xlog.Logger
	duration model.Milliseconds
	bounds   model.Bounds
	// Set by New when the profile span itself is invalid.
	invalid error
	frozen  bool

	nativeEvents []stagedNativeEvent
	reactEvents  []model.ReactEvent
	measures     []model.ReactMeasure
	flamechart   model.Flamechart
	marks        []model.UserTimingMark

	suspense *model.SuspenseTracker
}

// New starts a profile of the given span. An invalid span is reported by
// every following call.
func New(startTime, duration model.Milliseconds, opts ...Option) *Builder {
	b := &Builder{
		logger:   xlog.NewNop(),
		duration: duration,
		bounds:   model.Bounds{Start: startTime, End: startTime + duration},
		invalid:  model.CheckSpan(startTime, duration),
		suspense: model.NewSuspenseTracker(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Bounds() model.Bounds {
	return b.bounds
}

func (b *Builder) checkNotFrozen() error {
	if b.frozen {
		return ErrFrozen
	}
	return b.invalid
}

////////////////////////////////////////////////////////////////////////////////

// AddNativeEvent returns index of the event which can be passed to AddWarning.
func (b *Builder) AddNativeEvent(e model.NativeEvent) (int, error) {
	if err := b.checkNotFrozen(); err != nil {
		return -1, err
	}

	staged := stagedNativeEvent{event: e, warnings: make(map[string]struct{})}
	for _, w := range e.Warnings {
		staged.warnings[w] = struct{}{}
	}
	staged.event.Warnings = nil

	if err := model.CheckNativeEvent(b.bounds, &staged.event); err != nil {
		return -1, fmt.Errorf("native event %q: %w", e.Type, err)
	}
	if n := len(b.nativeEvents); n > 0 && e.Timestamp < b.nativeEvents[n-1].event.Timestamp {
		return -1, fmt.Errorf("native event %q at %v: %w", e.Type, e.Timestamp, model.ErrUnordered)
	}

	b.nativeEvents = append(b.nativeEvents, staged)
	return len(b.nativeEvents) - 1, nil
}

// AddWarning annotates an already admitted native event. Warnings form a set.
func (b *Builder) AddWarning(index int, warning string) error {
	if err := b.checkNotFrozen(); err != nil {
		return err
	}
	if index < 0 || index >= len(b.nativeEvents) {
		return fmt.Errorf("%w: %d", ErrUnknownEvent, index)
	}
	b.nativeEvents[index].warnings[warning] = struct{}{}
	return nil
}

func (b *Builder) AddReactEvent(e model.ReactEvent) error {
	if err := b.checkNotFrozen(); err != nil {
		return err
	}
	if err := model.CheckReactEvent(b.bounds, e); err != nil {
		return err
	}
	if n := len(b.reactEvents); n > 0 && e.Time() < b.reactEvents[n-1].Time() {
		return fmt.Errorf("%s at %v: %w", e.Kind(), e.Time(), model.ErrUnordered)
	}
	if err := b.suspense.Observe(e); err != nil {
		return err
	}
	b.reactEvents = append(b.reactEvents, model.CloneEvent(e))
	return nil
}

func (b *Builder) AddMeasure(m model.ReactMeasure) error {
	if err := b.checkNotFrozen(); err != nil {
		return err
	}
	if m.Status == "" {
		m.Status = model.MeasureCompleted
	}
	if err := model.CheckMeasure(b.bounds, &m); err != nil {
		return err
	}
	if n := len(b.measures); n > 0 && m.Timestamp < b.measures[n-1].Timestamp {
		return fmt.Errorf("%s at %v: %w", m.Type, m.Timestamp, model.ErrUnordered)
	}
	b.measures = append(b.measures, m.Clone())
	return nil
}

func (b *Builder) AddUserTimingMark(m model.UserTimingMark) error {
	if err := b.checkNotFrozen(); err != nil {
		return err
	}
	if err := b.bounds.Check(m.Timestamp); err != nil {
		return fmt.Errorf("mark %q: %w", m.Name, err)
	}
	if n := len(b.marks); n > 0 && m.Timestamp < b.marks[n-1].Timestamp {
		return fmt.Errorf("mark %q at %v: %w", m.Name, m.Timestamp, model.ErrUnordered)
	}
	b.marks = append(b.marks, m)
	return nil
}

// AddFrame appends a frame to the layer of the given depth.
// Frames of a layer must be appended left to right.
func (b *Builder) AddFrame(depth int, f model.FlamechartStackFrame) error {
	if err := b.checkNotFrozen(); err != nil {
		return err
	}
	if depth < 0 || depth > len(b.flamechart) {
		return fmt.Errorf("%w: depth %d with %d layers", model.ErrFrameNesting, depth, len(b.flamechart))
	}
	if err := model.CheckFrame(b.bounds, &f); err != nil {
		return err
	}
	if depth == len(b.flamechart) {
		b.flamechart = append(b.flamechart, model.FlamechartStackLayer{})
	}
	layer := b.flamechart[depth]
	if n := len(layer); n > 0 && f.Timestamp < layer[n-1].End() {
		return fmt.Errorf("frame %q at %v: %w", f.Name, f.Timestamp, model.ErrFrameOverlap)
	}
	b.flamechart[depth] = append(layer, f)
	return nil
}

// SetFlamechart replaces the staged flamechart, typically with flamechart.Builder output.
func (b *Builder) SetFlamechart(chart model.Flamechart) error {
	if err := b.checkNotFrozen(); err != nil {
		return err
	}
	for depth, layer := range chart {
		for i := range layer {
			if err := model.CheckFrame(b.bounds, &layer[i]); err != nil {
				return fmt.Errorf("flamechart[%d][%d]: %w", depth, i, err)
			}
		}
	}
	b.flamechart = chart.Clone()
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// Freeze validates the staged data and returns its immutable form.
// The builder can not be used afterwards, even if validation fails.
func (b *Builder) Freeze() (*model.ProfilerData, error) {
	if err := b.checkNotFrozen(); err != nil {
		return nil, err
	}
	b.frozen = true

	data := &model.ProfilerData{
		StartTime:            b.bounds.Start,
		Duration:             b.duration,
		NativeEvents:         make([]model.NativeEvent, len(b.nativeEvents)),
		ReactEvents:          b.reactEvents,
		Measures:             b.measures,
		Flamechart:           b.flamechart,
		OtherUserTimingMarks: b.marks,
	}
	for i, staged := range b.nativeEvents {
		e := staged.event
		if len(staged.warnings) > 0 {
			e.Warnings = slices.Sorted(maps.Keys(staged.warnings))
		}
		data.NativeEvents[i] = e
	}
	if data.ReactEvents == nil {
		data.ReactEvents = []model.ReactEvent{}
	}
	if data.Measures == nil {
		data.Measures = []model.ReactMeasure{}
	}
	if data.OtherUserTimingMarks == nil {
		data.OtherUserTimingMarks = []model.UserTimingMark{}
	}
	if data.Flamechart == nil {
		data.Flamechart = model.Flamechart{}
	}

	b.nativeEvents = nil
	b.reactEvents = nil
	b.measures = nil
	b.flamechart = nil
	b.marks = nil

	if err := model.Validate(data); err != nil {
		return nil, fmt.Errorf("failed to freeze profile: %w", err)
	}

	b.logger.Debug(context.Background(), "Froze profile",
		zap.Float64("start", float64(data.StartTime)),
		zap.Float64("duration", float64(data.Duration)),
		zap.Int("native_events", len(data.NativeEvents)),
		zap.Int("react_events", len(data.ReactEvents)),
		zap.Int("measures", len(data.Measures)),
		zap.Int("flamechart_depth", data.Flamechart.Depth()),
		zap.Int("marks", len(data.OtherUserTimingMarks)),
		zap.Strings("open_suspenses", b.suspense.Open()),
	)

	return data, nil
}
