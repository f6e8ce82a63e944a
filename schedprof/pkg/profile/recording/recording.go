package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yandex/schedprof/schedprof/pkg/profile/batch"
	"github.com/yandex/schedprof/schedprof/pkg/profile/builder"
	"github.com/yandex/schedprof/schedprof/pkg/profile/flamechart"
	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
	"github.com/yandex/schedprof/schedprof/pkg/xlog"
)

var ErrBadEntry = errors.New("timeline entry must set exactly one of event and phase")

// Recording lists raw inputs of one profiling session in arrival order.
type Recording struct {
	StartTime    model.Milliseconds `yaml:"startTime"`
	Duration     model.Milliseconds `yaml:"duration"`
	NativeEvents []NativeEvent      `yaml:"nativeEvents"`
	// Scheduling stream: react events and phase boundaries, ordered by time.
	Timeline []Entry `yaml:"timeline"`
	Samples  []Sample `yaml:"samples"`
	Marks    []Mark   `yaml:"marks"`
}

type NativeEvent struct {
	Type      string             `yaml:"type"`
	Timestamp model.Milliseconds `yaml:"at"`
	Duration  model.Milliseconds `yaml:"duration"`
	Depth     int                `yaml:"depth"`
	Warnings  []string           `yaml:"warnings,omitempty"`
}

type Lane struct {
	Lane  model.Lane `yaml:"lane"`
	Label string     `yaml:"label"`
}

type Entry struct {
	At             model.Milliseconds `yaml:"at"`
	Event          model.EventKind    `yaml:"event,omitempty"`
	Phase          batch.BoundaryKind `yaml:"phase,omitempty"`
	Lanes          []Lane             `yaml:"lanes,omitempty"`
	ID             string             `yaml:"id,omitempty"`
	Component      string             `yaml:"component,omitempty"`
	ComponentStack string             `yaml:"componentStack,omitempty"`
}

type Frame struct {
	Name   string  `yaml:"name"`
	URL    *string `yaml:"url,omitempty"`
	Line   *int    `yaml:"line,omitempty"`
	Column *int    `yaml:"column,omitempty"`
}

// Sample is the full call stack observed at a point in time, root first.
type Sample struct {
	At    model.Milliseconds `yaml:"at"`
	Stack []Frame            `yaml:"stack"`
}

type Mark struct {
	Name      string             `yaml:"name"`
	Timestamp model.Milliseconds `yaml:"at"`
}

////////////////////////////////////////////////////////////////////////////////

// Parse rejects unknown fields.
func Parse(r io.Reader) (*Recording, error) {
	rec := &Recording{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(rec); err != nil {
		return nil, fmt.Errorf("failed to parse recording: %w", err)
	}
	return rec, nil
}

func Load(path string) (*Recording, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	return Parse(file)
}

////////////////////////////////////////////////////////////////////////////////

type options struct {
	logger     xlog.Logger
	depthLimit int
}

type Option func(o *options)

func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDepthLimit is passed to the flamechart builder.
func WithDepthLimit(limit int) Option {
	return func(o *options) {
		o.depthLimit = limit
	}
}

// Replay feeds the recording through the batch correlator and the flamechart
// builder and freezes the result.
func Replay(ctx context.Context, rec *Recording, opts ...Option) (*model.ProfilerData, error) {
	o := options{logger: xlog.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	end := rec.StartTime + rec.Duration

	b := builder.New(rec.StartTime, rec.Duration, builder.WithLogger(o.logger))

	for i, e := range rec.NativeEvents {
		index, err := b.AddNativeEvent(model.NativeEvent{
			Depth:     e.Depth,
			Duration:  e.Duration,
			Timestamp: e.Timestamp,
			Type:      e.Type,
		})
		if err != nil {
			return nil, fmt.Errorf("nativeEvents[%d]: %w", i, err)
		}
		for _, w := range e.Warnings {
			if err := b.AddWarning(index, w); err != nil {
				return nil, fmt.Errorf("nativeEvents[%d]: %w", i, err)
			}
		}
	}

	correlated, err := correlate(rec.Timeline, end, o.logger)
	if err != nil {
		return nil, err
	}
	for _, e := range correlated.Events {
		if err := b.AddReactEvent(e); err != nil {
			return nil, err
		}
	}
	for _, m := range correlated.Measures {
		if err := b.AddMeasure(m); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chart, err := buildFlamechart(ctx, rec.Samples, end, &o)
	if err != nil {
		return nil, err
	}
	if err := b.SetFlamechart(chart); err != nil {
		return nil, err
	}

	for i, m := range rec.Marks {
		if err := b.AddUserTimingMark(model.UserTimingMark{Name: m.Name, Timestamp: m.Timestamp}); err != nil {
			return nil, fmt.Errorf("marks[%d]: %w", i, err)
		}
	}

	data, err := b.Freeze()
	if err != nil {
		return nil, err
	}
	o.logger.Info(ctx, "Replayed recording",
		zap.Int("react_events", len(data.ReactEvents)),
		zap.Int("measures", len(data.Measures)),
		zap.Int("frames", data.Flamechart.FrameCount()),
	)
	return data, nil
}

func correlate(timeline []Entry, end model.Milliseconds, l xlog.Logger) (*batch.Result, error) {
	c := batch.NewCorrelator(batch.WithLogger(l))

	for i := range timeline {
		entry := &timeline[i]
		lanes := make(model.Lanes, 0, len(entry.Lanes))
		for _, lane := range entry.Lanes {
			lanes = append(lanes, model.LaneLabel{Lane: lane.Lane, Label: lane.Label})
		}

		var err error
		switch {
		case entry.Event != "" && entry.Phase == "":
			var e model.ReactEvent
			e, err = entry.event(lanes)
			if err == nil {
				_, err = c.Schedule(e)
			}
		case entry.Phase != "" && entry.Event == "":
			var kind batch.BoundaryKind
			kind, err = batch.ParseBoundaryKind(string(entry.Phase))
			if err == nil {
				err = c.Boundary(batch.Boundary{Kind: kind, Timestamp: entry.At, Lanes: lanes})
			}
		default:
			err = ErrBadEntry
		}
		if err != nil {
			return nil, fmt.Errorf("timeline[%d]: %w", i, err)
		}
	}

	return c.Finish(end)
}

func (e *Entry) event(lanes model.Lanes) (model.ReactEvent, error) {
	base := model.EventBase{
		Timestamp:      e.At,
		ComponentName:  e.Component,
		ComponentStack: e.ComponentStack,
	}
	sched := model.ScheduleEvent{EventBase: base, Lanes: lanes}
	susp := model.SuspenseEvent{EventBase: base, ID: e.ID}

	// Cascading flags are derived by the correlator.
	switch e.Event {
	case model.EventScheduleRender:
		return &model.ScheduleRenderEvent{ScheduleEvent: sched}, nil
	case model.EventScheduleStateUpdate:
		return &model.ScheduleStateUpdateEvent{ScheduleEvent: sched}, nil
	case model.EventScheduleForceUpdate:
		return &model.ScheduleForceUpdateEvent{ScheduleEvent: sched}, nil
	case model.EventSuspenseSuspend:
		return &model.SuspenseSuspendEvent{SuspenseEvent: susp}, nil
	case model.EventSuspenseResolved:
		return &model.SuspenseResolvedEvent{SuspenseEvent: susp}, nil
	case model.EventSuspenseRejected:
		return &model.SuspenseRejectedEvent{SuspenseEvent: susp}, nil
	}
	return nil, fmt.Errorf("%w: %q", builder.ErrUnknownEvent, e.Event)
}

func buildFlamechart(ctx context.Context, samples []Sample, end model.Milliseconds, o *options) (model.Flamechart, error) {
	fb := flamechart.NewBuilder(
		flamechart.WithLogger(o.logger),
		flamechart.WithDepthLimit(o.depthLimit),
	)

	for i, s := range samples {
		stack := make([]flamechart.Frame, 0, len(s.Stack))
		for _, f := range s.Stack {
			stack = append(stack, flamechart.Frame{
				Name:           f.Name,
				ScriptURL:      f.URL,
				LocationLine:   f.Line,
				LocationColumn: f.Column,
			})
		}
		if err := fb.Sample(s.At, stack); err != nil {
			return nil, fmt.Errorf("samples[%d]: %w", i, err)
		}
	}

	chart, err := fb.Finish(end)
	if err != nil {
		return nil, err
	}
	if dropped := fb.Dropped(); dropped > 0 {
		o.logger.Warn(ctx, "Dropped deep flamechart frames", zap.Int("count", dropped))
	}
	return chart, nil
}
