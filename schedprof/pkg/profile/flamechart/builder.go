package flamechart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
	"github.com/yandex/schedprof/schedprof/pkg/xlog"
)

var (
	ErrDepthGap   = errors.New("stack depth skips a level")
	ErrTimeTravel = errors.New("sample timestamp goes backwards")
	ErrFinished   = errors.New("flamechart builder is finished")
)

// Frame describes a call frame entered by a stack sample.
type Frame struct {
	Name           string
	ScriptURL      *string
	LocationLine   *int
	LocationColumn *int
}

////////////////////////////////////////////////////////////////////////////////

type Option func(b *Builder)

func WithLogger(l xlog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithDepthLimit drops frames at depth >= limit. Zero means no limit.
func WithDepthLimit(limit int) Option {
	return func(b *Builder) {
		b.maxDepth = limit
	}
}

////////////////////////////////////////////////////////////////////////////////

type openFrame struct {
	layer int
	index int
	// Frame skipped by the depth limit, layer is -1 then.
	dropped Frame
}

// Builder assembles flamechart layers from a stream of enter/exit samples.
// Layer index equals stack depth; frames in a layer never overlap.
// Frames closed at the timestamp they were entered cover no time and are
// discarded, so every frame has exactly one parent.
type Builder struct {
	logger   xlog.Logger
	maxDepth int

	chart model.Flamechart
	// open[d] is the open frame at depth d, the slice is the current stack.
	open     []openFrame
	last     model.Milliseconds
	started  bool
	finished bool
	dropped  int
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		logger: xlog.NewNop(),
		chart:  model.Flamechart{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) advance(ts model.Milliseconds) error {
	if b.finished {
		return ErrFinished
	}
	if b.started && ts < b.last {
		return fmt.Errorf("%w: %v after %v", ErrTimeTravel, ts, b.last)
	}
	b.started = true
	b.last = ts
	return nil
}

// Enter opens a frame at the given depth. Open frames at the same or deeper
// levels are closed first, at the same timestamp.
func (b *Builder) Enter(depth int, ts model.Milliseconds, frame Frame) error {
	if err := b.advance(ts); err != nil {
		return err
	}
	if depth < 0 || depth > len(b.open) {
		return fmt.Errorf("%w: entering depth %d with %d open frames", ErrDepthGap, depth, len(b.open))
	}
	b.closeFrom(depth, ts)

	if b.maxDepth > 0 && depth >= b.maxDepth {
		b.dropped++
		// Keep the stack shape so that deeper enters still find their parent level.
		b.open = append(b.open, openFrame{layer: -1, index: -1, dropped: frame})
		return nil
	}

	if depth == len(b.chart) {
		b.chart = append(b.chart, model.FlamechartStackLayer{})
	}
	b.chart[depth] = append(b.chart[depth], model.FlamechartStackFrame{
		Name:           frame.Name,
		Timestamp:      ts,
		ScriptURL:      frame.ScriptURL,
		LocationLine:   frame.LocationLine,
		LocationColumn: frame.LocationColumn,
	})
	b.open = append(b.open, openFrame{layer: depth, index: len(b.chart[depth]) - 1})
	return nil
}

// Exit closes the frame at depth and everything above it.
func (b *Builder) Exit(depth int, ts model.Milliseconds) error {
	if err := b.advance(ts); err != nil {
		return err
	}
	if depth < 0 || depth >= len(b.open) {
		return fmt.Errorf("%w: exiting depth %d with %d open frames", ErrDepthGap, depth, len(b.open))
	}
	b.closeFrom(depth, ts)
	return nil
}

// Sample replaces the current stack with stack (outermost first) at ts.
// Frames shared with the current stack prefix stay open.
func (b *Builder) Sample(ts model.Milliseconds, stack []Frame) error {
	common := 0
	for common < len(stack) && common < len(b.open) && b.sameFrame(common, stack[common]) {
		common++
	}
	if common < len(b.open) {
		if err := b.Exit(common, ts); err != nil {
			return err
		}
	}
	for depth := common; depth < len(stack); depth++ {
		if err := b.Enter(depth, ts, stack[depth]); err != nil {
			return err
		}
	}
	return b.advance(ts)
}

func (b *Builder) sameFrame(depth int, frame Frame) bool {
	of := b.open[depth]
	if of.layer < 0 {
		return of.dropped.equal(frame)
	}
	open := &b.chart[of.layer][of.index]
	return Frame{open.Name, open.ScriptURL, open.LocationLine, open.LocationColumn}.equal(frame)
}

func (f Frame) equal(other Frame) bool {
	return f.Name == other.Name &&
		equalPtr(f.ScriptURL, other.ScriptURL) &&
		equalPtr(f.LocationLine, other.LocationLine) &&
		equalPtr(f.LocationColumn, other.LocationColumn)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (b *Builder) closeFrom(depth int, ts model.Milliseconds) {
	for len(b.open) > depth {
		top := b.open[len(b.open)-1]
		b.open = b.open[:len(b.open)-1]
		if top.layer < 0 {
			continue
		}
		frame := &b.chart[top.layer][top.index]
		frame.Duration = ts - frame.Timestamp
		if frame.Duration == 0 {
			// An open frame is always the last one of its layer.
			b.chart[top.layer] = b.chart[top.layer][:top.index]
		}
	}
}

// Finish closes all open frames at end and returns the flamechart.
func (b *Builder) Finish(end model.Milliseconds) (model.Flamechart, error) {
	if err := b.advance(end); err != nil {
		return nil, err
	}
	b.closeFrom(0, end)
	b.finished = true
	for len(b.chart) > 0 && len(b.chart[len(b.chart)-1]) == 0 {
		b.chart = b.chart[:len(b.chart)-1]
	}

	b.logger.Debug(context.Background(), "Built flamechart",
		zap.Int("depth", len(b.chart)),
		zap.Int("frames", b.chart.FrameCount()),
		zap.Int("dropped", b.dropped),
	)
	return b.chart, nil
}

// Dropped returns the number of frame entries skipped by the depth limit.
// A dropped frame kept on the stack by consecutive samples is counted once.
func (b *Builder) Dropped() int {
	return b.dropped
}
