package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

type kindCounter map[model.EventKind]int

func (c kindCounter) VisitScheduleRender(e *model.ScheduleRenderEvent) { c[e.Kind()]++ }
func (c kindCounter) VisitScheduleStateUpdate(e *model.ScheduleStateUpdateEvent) {
	c[e.Kind()]++
}
func (c kindCounter) VisitScheduleForceUpdate(e *model.ScheduleForceUpdateEvent) {
	c[e.Kind()]++
}
func (c kindCounter) VisitSuspenseSuspend(e *model.SuspenseSuspendEvent)   { c[e.Kind()]++ }
func (c kindCounter) VisitSuspenseResolved(e *model.SuspenseResolvedEvent) { c[e.Kind()]++ }
func (c kindCounter) VisitSuspenseRejected(e *model.SuspenseRejectedEvent) { c[e.Kind()]++ }

var _ model.EventVisitor = kindCounter(nil)

func TestEventVisitor(t *testing.T) {
	lanes := model.Lanes{{Lane: 1, Label: "Sync"}}
	events := []model.ReactEvent{
		model.NewScheduleRender(1, lanes),
		model.NewScheduleStateUpdate(2, lanes, false),
		model.NewScheduleForceUpdate(3, lanes, true),
		model.NewSuspenseSuspend(4, "a"),
		model.NewSuspenseResolved(5, "a"),
		model.NewSuspenseRejected(6, "b"),
	}

	c := kindCounter{}
	for _, e := range events {
		e.Accept(c)
	}
	require.Len(t, c, 6)
	for _, e := range events {
		require.Equal(t, 1, c[e.Kind()])
	}

	require.True(t, model.EventScheduleForceUpdate.IsSchedule())
	require.False(t, model.EventSuspenseRejected.IsSchedule())
	require.True(t, model.Cascading(events[2]))
	require.False(t, model.Cascading(events[1]))

	id, ok := model.SuspenseID(events[5])
	require.True(t, ok)
	require.Equal(t, "b", id)
	_, ok = model.ScheduleLanes(events[5])
	require.False(t, ok)
}

func TestCloneEvent(t *testing.T) {
	e := model.NewScheduleStateUpdate(2, model.Lanes{{Lane: 1, Label: "Sync"}}, true)
	e.ComponentName = "App"

	c := model.CloneEvent(e).(*model.ScheduleStateUpdateEvent)
	require.Equal(t, e, c)
	c.Lanes[0].Label = "changed"
	require.Equal(t, "Sync", e.Lanes[0].Label)
}

type measureNames []string

func (n *measureNames) VisitCommit(*model.ReactMeasure)         { *n = append(*n, "commit") }
func (n *measureNames) VisitRenderIdle(*model.ReactMeasure)     { *n = append(*n, "render-idle") }
func (n *measureNames) VisitRender(*model.ReactMeasure)         { *n = append(*n, "render") }
func (n *measureNames) VisitLayoutEffects(*model.ReactMeasure)  { *n = append(*n, "layout-effects") }
func (n *measureNames) VisitPassiveEffects(*model.ReactMeasure) { *n = append(*n, "passive-effects") }

func TestMeasureVisitor(t *testing.T) {
	var names measureNames
	for _, typ := range []model.MeasureType{
		model.MeasureRenderIdle,
		model.MeasureRender,
		model.MeasureCommit,
		model.MeasureLayoutEffects,
		model.MeasurePassiveEffects,
	} {
		m := model.ReactMeasure{Type: typ}
		m.Accept(&names)
	}
	require.Equal(t, measureNames{"render-idle", "render", "commit", "layout-effects", "passive-effects"}, names)

	require.Panics(t, func() {
		m := model.ReactMeasure{Type: "paint"}
		m.Accept(&names)
	})
}

func TestLayerLookup(t *testing.T) {
	layer := model.FlamechartStackLayer{
		{Name: "a", Timestamp: 0, Duration: 5},
		{Name: "b", Timestamp: 5, Duration: 5},
		{Name: "c", Timestamp: 20, Duration: 5},
	}
	require.Equal(t, 0, layer.FrameAt(0))
	require.Equal(t, 1, layer.FrameAt(5))
	require.Equal(t, -1, layer.FrameAt(12))
	require.Equal(t, -1, layer.FrameAt(25))
	require.Equal(t, -1, layer.FrameAt(-1))

	require.Len(t, layer.Overlapping(4, 21), 3)
	require.Len(t, layer.Overlapping(11, 19), 0)

	require.Equal(t, 1, layer.Parent(&model.FlamechartStackFrame{Timestamp: 6, Duration: 4}))
	require.Equal(t, -1, layer.Parent(&model.FlamechartStackFrame{Timestamp: 6, Duration: 5}))

	require.Equal(t, 1, layer.Containing(&model.FlamechartStackFrame{Timestamp: 6, Duration: 4}))
	require.Equal(t, 0, layer.Containing(&model.FlamechartStackFrame{Timestamp: 12}))
}
