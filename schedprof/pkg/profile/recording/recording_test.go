package recording_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yandex/schedprof/schedprof/pkg/profile/builder"
	"github.com/yandex/schedprof/schedprof/pkg/profile/hover"
	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
	"github.com/yandex/schedprof/schedprof/pkg/profile/recording"
	"github.com/yandex/schedprof/schedprof/pkg/xlog"
)

func TestReplay(t *testing.T) {
	rec, err := recording.Load("testdata/commit.yaml")
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	data, err := recording.Replay(context.Background(), rec, recording.WithLogger(xlog.New(zap.New(core))))
	require.NoError(t, err)

	require.Len(t, data.NativeEvents, 2)
	assert.Equal(t, []string{"long-event"}, data.NativeEvents[0].Warnings)
	assert.Nil(t, data.NativeEvents[1].Warnings)

	require.Len(t, data.ReactEvents, 2)
	assert.Equal(t, model.EventSuspenseSuspend, data.ReactEvents[0].Kind())
	assert.Equal(t, "App", data.ReactEvents[1].Base().ComponentName)
	assert.False(t, model.Cascading(data.ReactEvents[1]))

	types := make([]model.MeasureType, 0)
	for _, m := range data.Measures {
		types = append(types, m.Type)
		assert.Equal(t, model.BatchUID(1), m.BatchUID)
		assert.Equal(t, model.MeasureCompleted, m.Status)
	}
	assert.Equal(t, []model.MeasureType{
		model.MeasureRenderIdle,
		model.MeasureRender,
		model.MeasureCommit,
		model.MeasureLayoutEffects,
	}, types)

	require.Len(t, data.Flamechart, 2)
	assert.Equal(t, "App", data.Flamechart[0][0].Name)
	assert.Equal(t, model.Milliseconds(50), data.Flamechart[0][0].Duration)
	render := data.Flamechart[1][0]
	assert.Equal(t, model.Milliseconds(12), render.Timestamp)
	assert.Equal(t, model.Milliseconds(18), render.Duration)
	require.NotNil(t, render.LocationLine)
	assert.Equal(t, 10, *render.LocationLine)

	require.Len(t, data.OtherUserTimingMarks, 1)
	assert.Len(t, logs.FilterMessage("Replayed recording").All(), 1)

	c := hover.New(data)
	info := c.Resolve(hover.Query{At: 20, Categories: hover.CategoryAll})
	assert.Equal(t, model.MeasureRender, info.Measure.Type)
	assert.Equal(t, model.EventScheduleStateUpdate, info.ReactEvent.Kind())

	info = c.Resolve(hover.Query{At: 50, Categories: hover.CategoryReactEvent | hover.CategoryMeasure})
	assert.True(t, info.Empty())
	require.Len(t, c.OpenSuspenses(50), 1)
}

func TestReplayDepthLimit(t *testing.T) {
	rec, err := recording.Load("testdata/commit.yaml")
	require.NoError(t, err)

	data, err := recording.Replay(context.Background(), rec, recording.WithDepthLimit(1))
	require.NoError(t, err)
	require.Len(t, data.Flamechart, 1)
}

func TestParseErrors(t *testing.T) {
	_, err := recording.Parse(strings.NewReader("startTime: 0\nbogus: 1\n"))
	assert.Error(t, err)

	_, err = recording.Load("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestReplayErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		err  error
	}{
		{
			name: "event and phase",
			doc:  "duration: 10\ntimeline:\n  - {at: 1, event: schedule-render, phase: render-start}\n",
			err:  recording.ErrBadEntry,
		},
		{
			name: "empty entry",
			doc:  "duration: 10\ntimeline:\n  - {at: 1}\n",
			err:  recording.ErrBadEntry,
		},
		{
			name: "unknown event",
			doc:  "duration: 10\ntimeline:\n  - {at: 1, event: schedule-nothing}\n",
			err:  builder.ErrUnknownEvent,
		},
		{
			name: "mark out of range",
			doc:  "duration: 10\nmarks:\n  - {name: late, at: 20}\n",
			err:  model.ErrOutOfRange,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := recording.Parse(strings.NewReader(tc.doc))
			require.NoError(t, err)
			_, err = recording.Replay(context.Background(), rec)
			require.ErrorIs(t, err, tc.err)
		})
	}
}
