package batch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
	"github.com/yandex/schedprof/schedprof/pkg/xlog"
)

var (
	ErrUnbalanced  = errors.New("phase boundary does not match the open measure")
	ErrNoBatch     = errors.New("phase boundary outside of any batch")
	ErrTimeTravel  = errors.New("input timestamp goes backwards")
	ErrNotSchedule = errors.New("not a schedule or suspense event")
	ErrFinished    = errors.New("correlator is finished")
)

type BoundaryKind string

const (
	RenderStart         BoundaryKind = "render-start"
	RenderYield         BoundaryKind = "render-yield"
	RenderStop          BoundaryKind = "render-stop"
	RenderCancel        BoundaryKind = "render-cancel"
	CommitStart         BoundaryKind = "commit-start"
	CommitStop          BoundaryKind = "commit-stop"
	LayoutEffectsStart  BoundaryKind = "layout-effects-start"
	LayoutEffectsStop   BoundaryKind = "layout-effects-stop"
	PassiveEffectsStart BoundaryKind = "passive-effects-start"
	PassiveEffectsStop  BoundaryKind = "passive-effects-stop"
)

func ParseBoundaryKind(s string) (BoundaryKind, error) {
	switch k := BoundaryKind(s); k {
	case RenderStart, RenderYield, RenderStop, RenderCancel,
		CommitStart, CommitStop,
		LayoutEffectsStart, LayoutEffectsStop,
		PassiveEffectsStart, PassiveEffectsStop:
		return k, nil
	}
	return "", fmt.Errorf("unknown boundary kind %q", s)
}

// Boundary is a raw phase transition of the rendering runtime.
type Boundary struct {
	Kind      BoundaryKind
	Timestamp model.Milliseconds
	// Lanes being rendered or committed, may be empty.
	Lanes model.Lanes
}

type Result struct {
	Events   []model.ReactEvent
	Measures []model.ReactMeasure
}

////////////////////////////////////////////////////////////////////////////////

type Option func(c *Correlator)

func WithLogger(l xlog.Logger) Option {
	return func(c *Correlator) {
		c.logger = l
	}
}

////////////////////////////////////////////////////////////////////////////////

type batch struct {
	uid   model.BatchUID
	lanes model.Lanes
	// Index of the render-idle measure.
	idle int
}

// Correlator turns a time ordered stream of schedule events and phase
// boundaries into measures grouped by batch.
type Correlator struct {
	logger xlog.Logger

	nextUID model.BatchUID
	current *batch
	last    *batch
	batches map[model.BatchUID]*batch

	// Indexes of open measures, innermost last.
	stack    []int
	measures []model.ReactMeasure
	events   []model.ReactEvent

	lastTS   model.Milliseconds
	started  bool
	finished bool
}

func NewCorrelator(opts ...Option) *Correlator {
	c := &Correlator{
		logger:  xlog.NewNop(),
		nextUID: 1,
		batches: make(map[model.BatchUID]*batch),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Correlator) advance(ts model.Milliseconds) error {
	if c.finished {
		return ErrFinished
	}
	if c.started && ts < c.lastTS {
		return fmt.Errorf("%w: %v after %v", ErrTimeTravel, ts, c.lastTS)
	}
	c.started = true
	c.lastTS = ts
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// Schedule records a react event. Schedule events open a batch when none is
// open and contribute their lanes to the current one. Suspense events are
// recorded unchanged.
//
// IsCascading of state and force updates is decided by Finish, once the
// render-idle and render measures around the update are closed. Until then
// the returned event carries the flag of an open render started before it.
func (c *Correlator) Schedule(e model.ReactEvent) (model.ReactEvent, error) {
	if e == nil {
		return nil, ErrNotSchedule
	}
	if err := c.advance(e.Time()); err != nil {
		return nil, err
	}

	lanes, isSchedule := model.ScheduleLanes(e)
	if !isSchedule {
		if !e.Kind().IsSuspense() {
			return nil, fmt.Errorf("%w: %s", ErrNotSchedule, e.Kind())
		}
		e = model.CloneEvent(e)
		c.events = append(c.events, e)
		return e, nil
	}
	if len(lanes) == 0 {
		return nil, fmt.Errorf("%s at %v: %w", e.Kind(), e.Time(), model.ErrEmptyLanes)
	}

	e = model.CloneEvent(e)
	setCascading(e, c.renderOpenBefore(e.Time()))

	if c.current == nil {
		c.openBatch(e.Time(), lanes)
	} else {
		c.current.lanes = c.current.lanes.Union(lanes)
	}

	c.events = append(c.events, e)
	return e, nil
}

func isRender(m *model.ReactMeasure) bool {
	return m.Type == model.MeasureRenderIdle || m.Type == model.MeasureRender
}

func (c *Correlator) renderOpenBefore(ts model.Milliseconds) bool {
	return slices.ContainsFunc(c.stack, func(i int) bool {
		m := &c.measures[i]
		return isRender(m) && m.Timestamp < ts
	})
}

// insideRender reports whether ts lies strictly inside a closed render-idle
// or render measure. Measures must be sorted by timestamp.
func insideRender(measures []model.ReactMeasure, ts model.Milliseconds) bool {
	n := sort.Search(len(measures), func(i int) bool {
		return measures[i].Timestamp >= ts
	})
	return slices.ContainsFunc(measures[:n], func(m model.ReactMeasure) bool {
		return isRender(&m) && ts < m.End()
	})
}

func setCascading(e model.ReactEvent, cascading bool) {
	switch e := e.(type) {
	case *model.ScheduleStateUpdateEvent:
		e.IsCascading = cascading
	case *model.ScheduleForceUpdateEvent:
		e.IsCascading = cascading
	}
}

func (c *Correlator) openBatch(ts model.Milliseconds, lanes model.Lanes) {
	b := &batch{
		uid:   c.nextUID,
		lanes: lanes.Clone(),
	}
	c.nextUID++
	c.current = b
	c.batches[b.uid] = b
	b.idle = c.open(model.MeasureRenderIdle, ts, b.uid)
}

func (c *Correlator) open(typ model.MeasureType, ts model.Milliseconds, uid model.BatchUID) int {
	c.measures = append(c.measures, model.ReactMeasure{
		Type:      typ,
		Timestamp: ts,
		BatchUID:  uid,
		Depth:     len(c.stack),
		Status:    model.MeasureCompleted,
	})
	idx := len(c.measures) - 1
	c.stack = append(c.stack, idx)
	return idx
}

// close finishes the innermost open measure of the given type. Only render-idle
// measures may remain open above it.
func (c *Correlator) close(typ model.MeasureType, ts model.Milliseconds) error {
	pos := -1
	for i := len(c.stack) - 1; i >= 0; i-- {
		m := &c.measures[c.stack[i]]
		if m.Type == typ {
			pos = i
			break
		}
		if m.Type != model.MeasureRenderIdle {
			return fmt.Errorf("%w: closing %s at %v while %s is open", ErrUnbalanced, typ, ts, m.Type)
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: no open %s at %v", ErrUnbalanced, typ, ts)
	}
	m := &c.measures[c.stack[pos]]
	m.Duration = ts - m.Timestamp
	c.stack = slices.Delete(c.stack, pos, pos+1)
	return nil
}

// closeBatch finishes the current batch and every measure of it still open.
func (c *Correlator) closeBatch(ts model.Milliseconds, status model.MeasureStatus) {
	b := c.current
	kept := c.stack[:0]
	for _, i := range c.stack {
		m := &c.measures[i]
		if m.BatchUID != b.uid {
			kept = append(kept, i)
			continue
		}
		m.Duration = ts - m.Timestamp
		m.Status = status
	}
	c.stack = kept
	c.last = b
	c.current = nil
}

func (c *Correlator) batchFor(kind BoundaryKind, ts model.Milliseconds) (*batch, error) {
	if c.current != nil {
		return c.current, nil
	}
	if c.last != nil {
		return c.last, nil
	}
	return nil, fmt.Errorf("%w: %s at %v", ErrNoBatch, kind, ts)
}

// Boundary records a phase transition.
func (c *Correlator) Boundary(b Boundary) error {
	if err := c.advance(b.Timestamp); err != nil {
		return err
	}
	ts := b.Timestamp

	switch b.Kind {
	case RenderStart:
		if c.current == nil {
			if len(b.Lanes) == 0 {
				return fmt.Errorf("%s at %v outside of a batch: %w", b.Kind, ts, model.ErrEmptyLanes)
			}
			c.openBatch(ts, b.Lanes)
		}
		c.current.lanes = c.current.lanes.Union(b.Lanes)
		c.open(model.MeasureRender, ts, c.current.uid)

	case RenderYield, RenderStop:
		return c.close(model.MeasureRender, ts)

	case RenderCancel:
		if c.current == nil {
			return fmt.Errorf("%w: %s at %v", ErrNoBatch, b.Kind, ts)
		}
		c.logger.Debug(context.Background(), "Render cancelled",
			zap.Int("batch", int(c.current.uid)),
			zap.Float64("ts", float64(ts)),
		)
		c.closeBatch(ts, model.MeasureCancelled)

	case CommitStart:
		if c.current == nil {
			return fmt.Errorf("%w: %s at %v", ErrNoBatch, b.Kind, ts)
		}
		c.current.lanes = c.current.lanes.Union(b.Lanes)
		c.open(model.MeasureCommit, ts, c.current.uid)

	case CommitStop:
		if c.current == nil {
			return fmt.Errorf("%w: %s at %v", ErrNoBatch, b.Kind, ts)
		}
		if err := c.close(model.MeasureCommit, ts); err != nil {
			return err
		}
		for _, i := range c.stack {
			m := &c.measures[i]
			if m.BatchUID == c.current.uid && m.Type != model.MeasureRenderIdle {
				return fmt.Errorf("%w: commit of batch %d stopped at %v while %s is open", ErrUnbalanced, m.BatchUID, ts, m.Type)
			}
		}
		c.closeBatch(ts, model.MeasureCompleted)

	case LayoutEffectsStart:
		bt, err := c.batchFor(b.Kind, ts)
		if err != nil {
			return err
		}
		c.open(model.MeasureLayoutEffects, ts, bt.uid)

	case LayoutEffectsStop:
		return c.close(model.MeasureLayoutEffects, ts)

	case PassiveEffectsStart:
		bt, err := c.batchFor(b.Kind, ts)
		if err != nil {
			return err
		}
		c.open(model.MeasurePassiveEffects, ts, bt.uid)

	case PassiveEffectsStop:
		return c.close(model.MeasurePassiveEffects, ts)

	default:
		return fmt.Errorf("unknown boundary kind %q", b.Kind)
	}
	return nil
}

// Finish closes everything still open at end with status open and returns
// events and measures ordered by timestamp.
func (c *Correlator) Finish(end model.Milliseconds) (*Result, error) {
	if err := c.advance(end); err != nil {
		return nil, err
	}
	c.finished = true

	if c.current != nil {
		c.logger.Debug(context.Background(), "Batch is still open at trace end",
			zap.Int("batch", int(c.current.uid)),
		)
		c.closeBatch(end, model.MeasureOpen)
	}
	for _, i := range c.stack {
		m := &c.measures[i]
		m.Duration = end - m.Timestamp
		m.Status = model.MeasureOpen
	}
	c.stack = nil

	for i := range c.measures {
		m := &c.measures[i]
		m.Lanes = c.batches[m.BatchUID].lanes.Clone()
	}
	slices.SortStableFunc(c.measures, func(a, b model.ReactMeasure) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	for _, e := range c.events {
		setCascading(e, insideRender(c.measures, e.Time()))
	}

	c.logger.Debug(context.Background(), "Correlated batches",
		zap.Int("batches", len(c.batches)),
		zap.Int("measures", len(c.measures)),
		zap.Int("events", len(c.events)),
	)

	return &Result{
		Events:   c.events,
		Measures: c.measures,
	}, nil
}
