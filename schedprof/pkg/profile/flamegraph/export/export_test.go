package export_test

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yandex/schedprof/schedprof/pkg/profile/flamegraph/export"
	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

func frame(name string, ts, dur model.Milliseconds) model.FlamechartStackFrame {
	return model.FlamechartStackFrame{Name: name, Timestamp: ts, Duration: dur}
}

func testChart() model.Flamechart {
	return model.Flamechart{
		{frame("A", 0, 10), frame("B", 10, 4), frame("A", 20, 2)},
		{frame("C", 1, 3), frame("D", 5, 1)},
		{frame("E", 1, 1)},
	}
}

func TestCollapse(t *testing.T) {
	stacks := export.Collapse(testChart())
	require.Equal(t, []export.Stack{
		{Frames: []string{"A"}, Value: 8000},
		{Frames: []string{"A", "C"}, Value: 2000},
		{Frames: []string{"A", "C", "E"}, Value: 1000},
		{Frames: []string{"A", "D"}, Value: 1000},
		{Frames: []string{"B"}, Value: 4000},
	}, stacks)

	assert.Empty(t, export.Collapse(nil))
}

func TestCollapsedText(t *testing.T) {
	stacks := export.Collapse(testChart())

	raw, err := export.MarshalCollapsed(stacks)
	require.NoError(t, err)
	require.Equal(t, "A 8000\nA;C 2000\nA;C;E 1000\nA;D 1000\nB 4000\n", string(raw))

	parsed, err := export.ReadCollapsed(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, stacks, parsed)

	_, err = export.ReadCollapsed(bytes.NewReader([]byte("nospace\n")))
	assert.Error(t, err)
	_, err = export.ReadCollapsed(bytes.NewReader([]byte("a;b x\n")))
	assert.Error(t, err)
}

func TestToPProf(t *testing.T) {
	p := export.ToPProf(export.Collapse(testChart()))
	require.NoError(t, p.CheckValid())

	assert.Equal(t, "wall", p.SampleType[0].Type)
	assert.Equal(t, "microseconds", p.SampleType[0].Unit)
	assert.Len(t, p.Location, 5)
	assert.Len(t, p.Sample, 5)

	leafFirst := make([]string, 0)
	for _, loc := range p.Sample[2].Location {
		leafFirst = append(leafFirst, loc.Line[0].Function.Name)
	}
	assert.Equal(t, []string{"E", "C", "A"}, leafFirst)
	assert.Equal(t, []int64{1000}, p.Sample[2].Value)

	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf))
	parsed, err := profile.Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, parsed.Sample, 5)
}

func TestFlamechartToPProf(t *testing.T) {
	p := export.FlamechartToPProf(&model.ProfilerData{StartTime: 2, Duration: 30, Flamechart: testChart()})
	assert.Equal(t, int64(2_000_000), p.TimeNanos)
	assert.Equal(t, int64(30_000_000), p.DurationNanos)
	assert.Len(t, p.Sample, 5)
}
