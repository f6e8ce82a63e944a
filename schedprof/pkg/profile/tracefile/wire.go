package tracefile

import (
	"fmt"

	"github.com/yandex/schedprof/schedprof/pkg/profile/builder"
	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

type wireNativeEvent struct {
	Depth     int                `json:"depth"`
	Duration  model.Milliseconds `json:"duration"`
	Timestamp model.Milliseconds `json:"timestamp"`
	Type      string             `json:"type"`
	Warnings  []string           `json:"warnings"`
}

// wireReactEvent is the flat form of every event variant, discriminated by Type.
type wireReactEvent struct {
	Type           model.EventKind    `json:"type"`
	Timestamp      model.Milliseconds `json:"timestamp"`
	ComponentName  string             `json:"componentName,omitempty"`
	ComponentStack string             `json:"componentStack,omitempty"`
	Lanes          []model.Lane       `json:"lanes,omitempty"`
	LaneLabels     []string           `json:"laneLabels,omitempty"`
	IsCascading    *bool              `json:"isCascading,omitempty"`
	ID             *string            `json:"id,omitempty"`
}

type wireMeasure struct {
	Type       model.MeasureType   `json:"type"`
	Lanes      []model.Lane        `json:"lanes"`
	LaneLabels []string            `json:"laneLabels"`
	Timestamp  model.Milliseconds  `json:"timestamp"`
	Duration   model.Milliseconds  `json:"duration"`
	BatchUID   model.BatchUID      `json:"batchUID"`
	Depth      int                 `json:"depth"`
	Status     model.MeasureStatus `json:"status,omitempty"`
}

type wireFrame struct {
	Name           string             `json:"name"`
	Timestamp      model.Milliseconds `json:"timestamp"`
	Duration       model.Milliseconds `json:"duration"`
	ScriptURL      *string            `json:"scriptUrl,omitempty"`
	LocationLine   *int               `json:"locationLine,omitempty"`
	LocationColumn *int               `json:"locationColumn,omitempty"`
}

type wireMark struct {
	Name      string             `json:"name"`
	Timestamp model.Milliseconds `json:"timestamp"`
}

type wireData struct {
	StartTime            model.Milliseconds `json:"startTime"`
	Duration             model.Milliseconds `json:"duration"`
	NativeEvents         []wireNativeEvent  `json:"nativeEvents"`
	ReactEvents          []wireReactEvent   `json:"reactEvents"`
	Measures             []wireMeasure      `json:"measures"`
	Flamechart           [][]wireFrame      `json:"flamechart"`
	OtherUserTimingMarks []wireMark         `json:"otherUserTimingMarks"`
}

////////////////////////////////////////////////////////////////////////////////

func toWire(d *model.ProfilerData) *wireData {
	w := &wireData{
		StartTime:            d.StartTime,
		Duration:             d.Duration,
		NativeEvents:         make([]wireNativeEvent, 0, len(d.NativeEvents)),
		ReactEvents:          make([]wireReactEvent, 0, len(d.ReactEvents)),
		Measures:             make([]wireMeasure, 0, len(d.Measures)),
		Flamechart:           make([][]wireFrame, 0, len(d.Flamechart)),
		OtherUserTimingMarks: make([]wireMark, 0, len(d.OtherUserTimingMarks)),
	}

	for _, e := range d.NativeEvents {
		var warnings []string
		if len(e.Warnings) > 0 {
			warnings = e.Warnings
		}
		w.NativeEvents = append(w.NativeEvents, wireNativeEvent{
			Depth:     e.Depth,
			Duration:  e.Duration,
			Timestamp: e.Timestamp,
			Type:      e.Type,
			Warnings:  warnings,
		})
	}

	enc := &eventEncoder{}
	for _, e := range d.ReactEvents {
		e.Accept(enc)
		w.ReactEvents = append(w.ReactEvents, enc.res)
	}

	for _, m := range d.Measures {
		w.Measures = append(w.Measures, wireMeasure{
			Type:       m.Type,
			Lanes:      m.Lanes.IDs(),
			LaneLabels: m.Lanes.Labels(),
			Timestamp:  m.Timestamp,
			Duration:   m.Duration,
			BatchUID:   m.BatchUID,
			Depth:      m.Depth,
			Status:     m.Status,
		})
	}

	for _, layer := range d.Flamechart {
		frames := make([]wireFrame, 0, len(layer))
		for _, f := range layer {
			frames = append(frames, wireFrame(f))
		}
		w.Flamechart = append(w.Flamechart, frames)
	}

	for _, m := range d.OtherUserTimingMarks {
		w.OtherUserTimingMarks = append(w.OtherUserTimingMarks, wireMark(m))
	}
	return w
}

type eventEncoder struct {
	res wireReactEvent
}

func (enc *eventEncoder) base(kind model.EventKind, b model.EventBase) wireReactEvent {
	return wireReactEvent{
		Type:           kind,
		Timestamp:      b.Timestamp,
		ComponentName:  b.ComponentName,
		ComponentStack: b.ComponentStack,
	}
}

func (enc *eventEncoder) schedule(kind model.EventKind, e *model.ScheduleEvent) {
	enc.res = enc.base(kind, e.EventBase)
	enc.res.Lanes = e.Lanes.IDs()
	enc.res.LaneLabels = e.Lanes.Labels()
}

func (enc *eventEncoder) suspense(kind model.EventKind, e *model.SuspenseEvent) {
	enc.res = enc.base(kind, e.EventBase)
	id := e.ID
	enc.res.ID = &id
}

func (enc *eventEncoder) VisitScheduleRender(e *model.ScheduleRenderEvent) {
	enc.schedule(e.Kind(), &e.ScheduleEvent)
}

func (enc *eventEncoder) VisitScheduleStateUpdate(e *model.ScheduleStateUpdateEvent) {
	enc.schedule(e.Kind(), &e.ScheduleEvent)
	cascading := e.IsCascading
	enc.res.IsCascading = &cascading
}

func (enc *eventEncoder) VisitScheduleForceUpdate(e *model.ScheduleForceUpdateEvent) {
	enc.schedule(e.Kind(), &e.ScheduleEvent)
	cascading := e.IsCascading
	enc.res.IsCascading = &cascading
}

func (enc *eventEncoder) VisitSuspenseSuspend(e *model.SuspenseSuspendEvent) {
	enc.suspense(e.Kind(), &e.SuspenseEvent)
}

func (enc *eventEncoder) VisitSuspenseResolved(e *model.SuspenseResolvedEvent) {
	enc.suspense(e.Kind(), &e.SuspenseEvent)
}

func (enc *eventEncoder) VisitSuspenseRejected(e *model.SuspenseRejectedEvent) {
	enc.suspense(e.Kind(), &e.SuspenseEvent)
}

////////////////////////////////////////////////////////////////////////////////

func fromWireEvent(w *wireReactEvent) (model.ReactEvent, error) {
	base := model.EventBase{
		Timestamp:      w.Timestamp,
		ComponentName:  w.ComponentName,
		ComponentStack: w.ComponentStack,
	}

	if w.Type.IsSchedule() {
		lanes, err := model.NewLanes(w.Lanes, w.LaneLabels)
		if err != nil {
			return nil, fmt.Errorf("%s at %v: %w", w.Type, w.Timestamp, err)
		}
		sched := model.ScheduleEvent{EventBase: base, Lanes: lanes}
		cascading := w.IsCascading != nil && *w.IsCascading

		switch w.Type {
		case model.EventScheduleRender:
			return &model.ScheduleRenderEvent{ScheduleEvent: sched}, nil
		case model.EventScheduleStateUpdate:
			return &model.ScheduleStateUpdateEvent{ScheduleEvent: sched, IsCascading: cascading}, nil
		case model.EventScheduleForceUpdate:
			return &model.ScheduleForceUpdateEvent{ScheduleEvent: sched, IsCascading: cascading}, nil
		}
	}

	if w.Type.IsSuspense() {
		if w.ID == nil {
			return nil, fmt.Errorf("%s at %v: missing suspense id", w.Type, w.Timestamp)
		}
		susp := model.SuspenseEvent{EventBase: base, ID: *w.ID}

		switch w.Type {
		case model.EventSuspenseSuspend:
			return &model.SuspenseSuspendEvent{SuspenseEvent: susp}, nil
		case model.EventSuspenseResolved:
			return &model.SuspenseResolvedEvent{SuspenseEvent: susp}, nil
		case model.EventSuspenseRejected:
			return &model.SuspenseRejectedEvent{SuspenseEvent: susp}, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", builder.ErrUnknownEvent, w.Type)
}

// fromWire rebuilds the profile through the builder, which normalizes and validates it.
func fromWire(w *wireData, opts ...builder.Option) (*model.ProfilerData, error) {
	b := builder.New(w.StartTime, w.Duration, opts...)

	for i, e := range w.NativeEvents {
		_, err := b.AddNativeEvent(model.NativeEvent{
			Depth:     e.Depth,
			Duration:  e.Duration,
			Timestamp: e.Timestamp,
			Type:      e.Type,
			Warnings:  e.Warnings,
		})
		if err != nil {
			return nil, fmt.Errorf("native event #%d: %w", i, err)
		}
	}

	for i := range w.ReactEvents {
		e, err := fromWireEvent(&w.ReactEvents[i])
		if err == nil {
			err = b.AddReactEvent(e)
		}
		if err != nil {
			return nil, fmt.Errorf("react event #%d: %w", i, err)
		}
	}

	for i, m := range w.Measures {
		lanes, err := model.NewLanes(m.Lanes, m.LaneLabels)
		if err == nil {
			err = b.AddMeasure(model.ReactMeasure{
				Type:      m.Type,
				Lanes:     lanes,
				Timestamp: m.Timestamp,
				Duration:  m.Duration,
				BatchUID:  m.BatchUID,
				Depth:     m.Depth,
				Status:    m.Status,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("measure #%d: %w", i, err)
		}
	}

	for depth, layer := range w.Flamechart {
		for _, f := range layer {
			if err := b.AddFrame(depth, model.FlamechartStackFrame(f)); err != nil {
				return nil, fmt.Errorf("flamechart layer %d: %w", depth, err)
			}
		}
	}

	for i, m := range w.OtherUserTimingMarks {
		if err := b.AddUserTimingMark(model.UserTimingMark(m)); err != nil {
			return nil, fmt.Errorf("user timing mark #%d: %w", i, err)
		}
	}

	return b.Freeze()
}
