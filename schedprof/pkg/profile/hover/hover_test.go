package hover_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yandex/schedprof/library/go/ptr"
	"github.com/yandex/schedprof/schedprof/pkg/profile/builder"
	"github.com/yandex/schedprof/schedprof/pkg/profile/hover"
	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

var defaultLane = model.Lanes{{Lane: 16, Label: "Default"}}

func measure(typ model.MeasureType, ts, dur model.Milliseconds, depth int) model.ReactMeasure {
	return model.ReactMeasure{
		Type:      typ,
		Lanes:     defaultLane,
		Timestamp: ts,
		Duration:  dur,
		BatchUID:  1,
		Depth:     depth,
		Status:    model.MeasureCompleted,
	}
}

func newProfile(t *testing.T) *model.ProfilerData {
	b := builder.New(0, 100)

	_, err := b.AddNativeEvent(model.NativeEvent{Depth: 0, Timestamp: 0, Duration: 60, Type: "click"})
	require.NoError(t, err)
	_, err = b.AddNativeEvent(model.NativeEvent{Depth: 1, Timestamp: 15, Duration: 10, Type: "input"})
	require.NoError(t, err)

	for _, e := range []model.ReactEvent{
		model.NewSuspenseSuspend(5, "A"),
		model.NewScheduleStateUpdate(10, defaultLane, false),
		model.NewSuspenseSuspend(45, "B"),
		model.NewSuspenseResolved(55, "B"),
	} {
		require.NoError(t, b.AddReactEvent(e))
	}

	require.NoError(t, b.AddMeasure(measure(model.MeasureRenderIdle, 10, 30, 0)))
	require.NoError(t, b.AddMeasure(measure(model.MeasureRender, 12, 23, 1)))
	require.NoError(t, b.AddMeasure(measure(model.MeasureCommit, 36, 2, 1)))

	require.NoError(t, b.AddUserTimingMark(model.UserTimingMark{Name: "first", Timestamp: 70}))
	require.NoError(t, b.AddUserTimingMark(model.UserTimingMark{Name: "second", Timestamp: 90}))

	require.NoError(t, b.AddFrame(0, model.FlamechartStackFrame{Name: "App", Timestamp: 0, Duration: 50}))
	require.NoError(t, b.AddFrame(1, model.FlamechartStackFrame{Name: "render", Timestamp: 12, Duration: 18}))

	data, err := b.Freeze()
	require.NoError(t, err)
	return data
}

func TestCompoundHoverInsideRender(t *testing.T) {
	data := newProfile(t)
	c := hover.New(data)

	info := c.Resolve(hover.Query{At: 20, Categories: hover.CategoryAll})
	require.NotNil(t, info)
	assert.Same(t, data, info.Data)

	require.NotNil(t, info.Measure)
	assert.Equal(t, model.MeasureRender, info.Measure.Type)

	require.NotNil(t, info.ReactEvent)
	assert.Equal(t, model.EventScheduleStateUpdate, info.ReactEvent.Kind())
	assert.Equal(t, model.Milliseconds(10), info.ReactEvent.Time())

	require.NotNil(t, info.NativeEvent)
	assert.Equal(t, "input", info.NativeEvent.Type)

	require.NotNil(t, info.FlamechartStackFrame)
	assert.Equal(t, "render", info.FlamechartStackFrame.Name)

	assert.Nil(t, info.UserTimingMark)
	assert.NoError(t, c.Owns(info))
}

func TestExclusiveHover(t *testing.T) {
	c := hover.New(newProfile(t))

	info := c.Resolve(hover.Query{At: 20})
	require.NotNil(t, info.Measure)
	assert.Equal(t, model.MeasureRender, info.Measure.Type)
	assert.Nil(t, info.ReactEvent)
	assert.Nil(t, info.NativeEvent)
	assert.Nil(t, info.FlamechartStackFrame)

	info = c.Resolve(hover.Query{At: 10.5, Radius: 1})
	require.NotNil(t, info.ReactEvent)
	assert.Equal(t, model.EventScheduleStateUpdate, info.ReactEvent.Kind())
	assert.Nil(t, info.Measure)

	info = c.Resolve(hover.Query{At: 55.5})
	require.NotNil(t, info.NativeEvent)
	assert.Equal(t, "click", info.NativeEvent.Type)
	assert.Nil(t, info.FlamechartStackFrame)

	info = c.Resolve(hover.Query{At: 71, Radius: 2})
	require.NotNil(t, info.UserTimingMark)
	assert.Equal(t, "first", info.UserTimingMark.Name)
}

func TestHoverOverUnresolvedSuspense(t *testing.T) {
	c := hover.New(newProfile(t))

	info := c.Resolve(hover.Query{At: 50, Categories: hover.CategoryReactEvent | hover.CategoryMeasure})
	assert.True(t, info.Empty())

	open := c.OpenSuspenses(50)
	require.Len(t, open, 2)
	assert.Equal(t, "A", open[0].ID)
	assert.Equal(t, "B", open[1].ID)

	open = c.OpenSuspenses(60)
	require.Len(t, open, 1)
	assert.Equal(t, "A", open[0].ID)

	assert.Empty(t, c.OpenSuspenses(1))
}

func TestMiss(t *testing.T) {
	data := newProfile(t)
	c := hover.New(data)

	for _, q := range []hover.Query{
		{At: 99},
		{At: 99, Categories: hover.CategoryAll},
		{At: -5, Radius: 1, Categories: hover.CategoryAll},
	} {
		info := c.Resolve(q)
		assert.True(t, info.Empty(), "%+v", q)
		assert.Same(t, data, info.Data)
	}
}

func TestDepthAndRadius(t *testing.T) {
	c := hover.New(newProfile(t))

	info := c.Resolve(hover.Query{At: 20, Depth: ptr.Int(0), Categories: hover.CategoryFlamechart})
	require.NotNil(t, info.FlamechartStackFrame)
	assert.Equal(t, "App", info.FlamechartStackFrame.Name)

	info = c.Resolve(hover.Query{At: 40, Depth: ptr.Int(1), Categories: hover.CategoryFlamechart})
	assert.Nil(t, info.FlamechartStackFrame)

	info = c.Resolve(hover.Query{At: 20, Depth: ptr.Int(7), Categories: hover.CategoryFlamechart})
	assert.Nil(t, info.FlamechartStackFrame)

	// Equally close marks resolve to the earlier one.
	assert.Equal(t, 0, c.UserTimingMarkNear(80, 10))
	assert.Equal(t, 1, c.UserTimingMarkNear(85, 10))
	assert.Equal(t, -1, c.UserTimingMarkNear(80, 9))
}

func TestIntervalBoundaries(t *testing.T) {
	c := hover.New(newProfile(t))

	// Intervals are half open.
	assert.Equal(t, 1, c.MeasureAt(12))
	assert.Equal(t, 0, c.MeasureAt(35))
	assert.Equal(t, -1, c.MeasureAt(40))
	assert.Equal(t, 0, c.NativeEventAt(25))
	assert.Equal(t, 1, c.NativeEventAt(15))
}

func TestSelectAndOwns(t *testing.T) {
	data := newProfile(t)
	c := hover.New(data)

	info, err := c.Select(hover.Selection{
		Measure:        ptr.Int(2),
		UserTimingMark: ptr.Int(1),
		Frame:          &hover.FrameRef{Depth: 1, Index: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.MeasureCommit, info.Measure.Type)
	assert.Equal(t, "second", info.UserTimingMark.Name)
	assert.Equal(t, "render", info.FlamechartStackFrame.Name)
	require.NoError(t, c.Owns(info))

	_, err = c.Select(hover.Selection{Measure: ptr.Int(3)})
	assert.ErrorIs(t, err, hover.ErrBadSelection)
	_, err = c.Select(hover.Selection{Frame: &hover.FrameRef{Depth: 2}})
	assert.ErrorIs(t, err, hover.ErrBadSelection)

	copied := *info.Measure
	assert.ErrorIs(t, c.Owns(&model.HoverContextInfo{Data: data, Measure: &copied}), hover.ErrForeignItem)
	assert.ErrorIs(t, c.Owns(&model.HoverContextInfo{Data: data.Clone()}), hover.ErrForeignData)

	other := model.NewScheduleRender(10, defaultLane)
	assert.ErrorIs(t, c.Owns(&model.HoverContextInfo{Data: data, ReactEvent: other}), hover.ErrForeignItem)
}

func TestParseCategory(t *testing.T) {
	for _, name := range hover.CategoryNames() {
		c, err := hover.ParseCategory(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.String())
	}

	c, err := hover.ParseCategory("all")
	require.NoError(t, err)
	assert.Equal(t, hover.CategoryAll, c)

	_, err = hover.ParseCategory("everything")
	assert.Error(t, err)
	assert.Equal(t, "exclusive", hover.Category(0).String())
}
