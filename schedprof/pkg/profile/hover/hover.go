package hover

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

var (
	ErrForeignData  = errors.New("hover context refers to another profile")
	ErrForeignItem  = errors.New("hovered item does not belong to the profile")
	ErrBadSelection = errors.New("selection index is out of range")
)

type Category uint8

const (
	CategoryNativeEvent Category = 1 << iota
	CategoryReactEvent
	CategoryMeasure
	CategoryFlamechart
	CategoryUserTimingMark

	CategoryAll = CategoryNativeEvent | CategoryReactEvent | CategoryMeasure | CategoryFlamechart | CategoryUserTimingMark
)

var categoryNames = []struct {
	category Category
	name     string
}{
	{CategoryNativeEvent, "native-event"},
	{CategoryReactEvent, "react-event"},
	{CategoryMeasure, "measure"},
	{CategoryFlamechart, "frame"},
	{CategoryUserTimingMark, "user-timing-mark"},
}

// Exclusive hovers pick the first category that hits, in this order.
var exclusiveOrder = []Category{
	CategoryReactEvent,
	CategoryMeasure,
	CategoryNativeEvent,
	CategoryUserTimingMark,
	CategoryFlamechart,
}

func CategoryNames() []string {
	res := make([]string, 0, len(categoryNames))
	for _, c := range categoryNames {
		res = append(res, c.name)
	}
	return res
}

func ParseCategory(s string) (Category, error) {
	if s == "all" {
		return CategoryAll, nil
	}
	for _, c := range categoryNames {
		if c.name == s {
			return c.category, nil
		}
	}
	return 0, fmt.Errorf("unknown hover category %q", s)
}

func (c Category) Has(other Category) bool {
	return c&other != 0
}

func (c Category) String() string {
	parts := make([]string, 0)
	for _, n := range categoryNames {
		if c.Has(n.category) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "exclusive"
	}
	return strings.Join(parts, "|")
}

////////////////////////////////////////////////////////////////////////////////

type Query struct {
	At model.Milliseconds
	// Hit tolerance for point items: react events and user timing marks.
	Radius model.Milliseconds
	// Flamechart layer under the pointer; nil selects the innermost frame.
	Depth *int
	// Zero resolves a single item, the first hit in priority order.
	// Several categories request a compound hover.
	Categories Category
}

type FrameRef struct {
	Depth int
	Index int
}

// Selection addresses hovered items by index; nil fields select nothing.
type Selection struct {
	NativeEvent    *int
	ReactEvent     *int
	Measure        *int
	Frame          *FrameRef
	UserTimingMark *int
}

////////////////////////////////////////////////////////////////////////////////

// Correlator resolves hover positions against one frozen profile.
// It never mutates the profile.
type Correlator struct {
	data *model.ProfilerData

	measures      intervalRows
	nativeEvents  intervalRows
	reactTimes    []model.Milliseconds
	markTimes     []model.Milliseconds
	idleByBatch   map[model.BatchUID]int
	schedules     []int
	scheduleTimes []model.Milliseconds
}

func New(data *model.ProfilerData) *Correlator {
	c := &Correlator{
		data:        data,
		idleByBatch: make(map[model.BatchUID]int),
	}

	for i := range data.Measures {
		m := &data.Measures[i]
		c.measures.add(m.Depth, i, m.Timestamp, m.End())
		if m.Type == model.MeasureRenderIdle {
			c.idleByBatch[m.BatchUID] = i
		}
	}
	for i := range data.NativeEvents {
		e := &data.NativeEvents[i]
		c.nativeEvents.add(e.Depth, i, e.Timestamp, e.End())
	}

	c.reactTimes = make([]model.Milliseconds, len(data.ReactEvents))
	for i, e := range data.ReactEvents {
		c.reactTimes[i] = e.Time()
		if e.Kind().IsSchedule() {
			c.schedules = append(c.schedules, i)
			c.scheduleTimes = append(c.scheduleTimes, e.Time())
		}
	}

	c.markTimes = make([]model.Milliseconds, len(data.OtherUserTimingMarks))
	for i := range data.OtherUserTimingMarks {
		c.markTimes[i] = data.OtherUserTimingMarks[i].Timestamp
	}

	return c
}

func (c *Correlator) Data() *model.ProfilerData {
	return c.data
}

////////////////////////////////////////////////////////////////////////////////

// MeasureAt returns the innermost measure covering t, or -1.
func (c *Correlator) MeasureAt(t model.Milliseconds) int {
	return c.measures.innermost(t)
}

// NativeEventAt returns the innermost native event covering t, or -1.
func (c *Correlator) NativeEventAt(t model.Milliseconds) int {
	return c.nativeEvents.innermost(t)
}

// FrameAt returns the frame covering t in the given layer, or in the deepest
// layer having one when depth is nil.
func (c *Correlator) FrameAt(t model.Milliseconds, depth *int) (FrameRef, bool) {
	chart := c.data.Flamechart
	if depth != nil {
		if *depth < 0 || *depth >= len(chart) {
			return FrameRef{}, false
		}
		if i := chart[*depth].FrameAt(t); i >= 0 {
			return FrameRef{*depth, i}, true
		}
		return FrameRef{}, false
	}
	for d := len(chart) - 1; d >= 0; d-- {
		if i := chart[d].FrameAt(t); i >= 0 {
			return FrameRef{d, i}, true
		}
	}
	return FrameRef{}, false
}

// ReactEventNear returns the react event closest to t within radius, or -1.
func (c *Correlator) ReactEventNear(t, radius model.Milliseconds) int {
	return nearest(c.reactTimes, t, radius)
}

// UserTimingMarkNear returns the mark closest to t within radius, or -1.
func (c *Correlator) UserTimingMarkNear(t, radius model.Milliseconds) int {
	return nearest(c.markTimes, t, radius)
}

// BatchScheduleAt returns the latest schedule event at or before t which
// belongs to the batch of the measure, or -1.
func (c *Correlator) BatchScheduleAt(measure int, t model.Milliseconds) int {
	m := &c.data.Measures[measure]
	from := m.Timestamp
	if idle, ok := c.idleByBatch[m.BatchUID]; ok {
		from = c.data.Measures[idle].Timestamp
	}
	i := lastAtOrBefore(c.scheduleTimes, t)
	if i < 0 || c.scheduleTimes[i] < from {
		return -1
	}
	return c.schedules[i]
}

// OpenSuspenses returns suspend events which are not settled at t.
func (c *Correlator) OpenSuspenses(t model.Milliseconds) []*model.SuspenseSuspendEvent {
	res := make([]*model.SuspenseSuspendEvent, 0)
	for _, span := range c.data.SuspenseSpans() {
		if span.Suspend.Timestamp > t {
			continue
		}
		if span.End == nil || span.End.Time() > t {
			res = append(res, span.Suspend)
		}
	}
	return res
}

////////////////////////////////////////////////////////////////////////////////

// Resolve maps a pointer position to hovered items. Misses leave fields nil.
func (c *Correlator) Resolve(q Query) *model.HoverContextInfo {
	if q.Categories == 0 {
		for _, category := range exclusiveOrder {
			info := c.resolve(q, category)
			if !info.Empty() {
				return info
			}
		}
		return &model.HoverContextInfo{Data: c.data}
	}
	return c.resolve(q, q.Categories)
}

func (c *Correlator) resolve(q Query, categories Category) *model.HoverContextInfo {
	sel := Selection{}

	if categories.Has(CategoryNativeEvent) {
		if i := c.NativeEventAt(q.At); i >= 0 {
			sel.NativeEvent = &i
		}
	}
	if categories.Has(CategoryMeasure) {
		if i := c.MeasureAt(q.At); i >= 0 {
			sel.Measure = &i
		}
	}
	if categories.Has(CategoryReactEvent) {
		if i := c.ReactEventNear(q.At, q.Radius); i >= 0 {
			sel.ReactEvent = &i
		} else if sel.Measure != nil {
			if i := c.BatchScheduleAt(*sel.Measure, q.At); i >= 0 {
				sel.ReactEvent = &i
			}
		}
	}
	if categories.Has(CategoryFlamechart) {
		if ref, ok := c.FrameAt(q.At, q.Depth); ok {
			sel.Frame = &ref
		}
	}
	if categories.Has(CategoryUserTimingMark) {
		if i := c.UserTimingMarkNear(q.At, q.Radius); i >= 0 {
			sel.UserTimingMark = &i
		}
	}

	info, err := c.Select(sel)
	if err != nil {
		// Indexes come from our own lookups.
		panic(err)
	}
	return info
}

// Select builds a hover context from explicit indexes into the profile.
func (c *Correlator) Select(sel Selection) (*model.HoverContextInfo, error) {
	d := c.data
	info := &model.HoverContextInfo{Data: d}

	inRange := func(name string, i *int, n int) error {
		if i != nil && (*i < 0 || *i >= n) {
			return fmt.Errorf("%w: %s %d of %d", ErrBadSelection, name, *i, n)
		}
		return nil
	}
	if err := errors.Join(
		inRange("native event", sel.NativeEvent, len(d.NativeEvents)),
		inRange("react event", sel.ReactEvent, len(d.ReactEvents)),
		inRange("measure", sel.Measure, len(d.Measures)),
		inRange("user timing mark", sel.UserTimingMark, len(d.OtherUserTimingMarks)),
	); err != nil {
		return nil, err
	}

	if sel.NativeEvent != nil {
		info.NativeEvent = &d.NativeEvents[*sel.NativeEvent]
	}
	if sel.ReactEvent != nil {
		info.ReactEvent = d.ReactEvents[*sel.ReactEvent]
	}
	if sel.Measure != nil {
		info.Measure = &d.Measures[*sel.Measure]
	}
	if sel.UserTimingMark != nil {
		info.UserTimingMark = &d.OtherUserTimingMarks[*sel.UserTimingMark]
	}
	if f := sel.Frame; f != nil {
		if f.Depth < 0 || f.Depth >= len(d.Flamechart) || f.Index < 0 || f.Index >= len(d.Flamechart[f.Depth]) {
			return nil, fmt.Errorf("%w: frame %d:%d", ErrBadSelection, f.Depth, f.Index)
		}
		info.FlamechartStackFrame = &d.Flamechart[f.Depth][f.Index]
	}
	return info, nil
}

// Owns checks that info refers to this correlator's profile and that every
// hovered item is an element of it, not a copy.
func (c *Correlator) Owns(info *model.HoverContextInfo) error {
	d := c.data
	if info.Data != d {
		return ErrForeignData
	}
	if info.NativeEvent != nil && !containsPtr(d.NativeEvents, info.NativeEvent) {
		return fmt.Errorf("%w: native event", ErrForeignItem)
	}
	if info.Measure != nil && !containsPtr(d.Measures, info.Measure) {
		return fmt.Errorf("%w: measure", ErrForeignItem)
	}
	if info.UserTimingMark != nil && !containsPtr(d.OtherUserTimingMarks, info.UserTimingMark) {
		return fmt.Errorf("%w: user timing mark", ErrForeignItem)
	}
	if info.ReactEvent != nil {
		found := false
		for _, e := range d.ReactEvents {
			if e == info.ReactEvent {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: react event", ErrForeignItem)
		}
	}
	if info.FlamechartStackFrame != nil {
		found := false
		for _, layer := range d.Flamechart {
			if containsPtr(layer, info.FlamechartStackFrame) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: flamechart frame", ErrForeignItem)
		}
	}
	return nil
}

func containsPtr[S ~[]E, E any](s S, p *E) bool {
	for i := range s {
		if &s[i] == p {
			return true
		}
	}
	return false
}
