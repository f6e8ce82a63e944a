package tracefile_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yandex/schedprof/library/go/ptr"
	"github.com/yandex/schedprof/schedprof/pkg/profile/builder"
	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
	"github.com/yandex/schedprof/schedprof/pkg/profile/tracefile"
)

var (
	defaultLane = model.Lanes{{Lane: 16, Label: "Default"}}
	syncLanes   = model.Lanes{{Lane: 1, Label: "Sync"}, {Lane: 2, Label: "InputContinuous"}}
)

func newProfile(t *testing.T) *model.ProfilerData {
	b := builder.New(1000, 100)

	i, err := b.AddNativeEvent(model.NativeEvent{Depth: 0, Timestamp: 1000, Duration: 50, Type: "click"})
	require.NoError(t, err)
	require.NoError(t, b.AddWarning(i, "long task"))
	_, err = b.AddNativeEvent(model.NativeEvent{Depth: 1, Timestamp: 1005, Duration: 5, Type: "input"})
	require.NoError(t, err)

	update := model.NewScheduleStateUpdate(1010, defaultLane, false)
	update.ComponentName = "App"
	update.ComponentStack = "in App\n in Root"
	for _, e := range []model.ReactEvent{
		model.NewSuspenseSuspend(1001, "A"),
		model.NewSuspenseSuspend(1002, "B"),
		model.NewScheduleRender(1003, syncLanes),
		update,
		model.NewScheduleForceUpdate(1015, defaultLane, true),
		model.NewSuspenseResolved(1020, "A"),
		model.NewSuspenseRejected(1030, "B"),
	} {
		require.NoError(t, b.AddReactEvent(e))
	}

	for _, m := range []model.ReactMeasure{
		{Type: model.MeasureRenderIdle, Lanes: defaultLane, Timestamp: 1010, Duration: 30, BatchUID: 1, Depth: 0},
		{Type: model.MeasureRender, Lanes: defaultLane, Timestamp: 1012, Duration: 20, BatchUID: 1, Depth: 1},
		{Type: model.MeasureCommit, Lanes: defaultLane, Timestamp: 1033, Duration: 5, BatchUID: 1, Depth: 1},
		{Type: model.MeasureRenderIdle, Lanes: syncLanes, Timestamp: 1050, Duration: 10, BatchUID: 2, Depth: 0, Status: model.MeasureCancelled},
		{Type: model.MeasureRender, Lanes: syncLanes, Timestamp: 1050, Duration: 10, BatchUID: 2, Depth: 1, Status: model.MeasureCancelled},
		{Type: model.MeasurePassiveEffects, Lanes: defaultLane, Timestamp: 1070, Duration: 30, BatchUID: 1, Depth: 0, Status: model.MeasureOpen},
	} {
		require.NoError(t, b.AddMeasure(m))
	}

	require.NoError(t, b.AddFrame(0, model.FlamechartStackFrame{
		Name:           "performWork",
		Timestamp:      1010,
		Duration:       30,
		ScriptURL:      ptr.String("https://example.com/react-dom.js"),
		LocationLine:   ptr.Int(120),
		LocationColumn: ptr.Int(7),
	}))
	require.NoError(t, b.AddFrame(1, model.FlamechartStackFrame{Name: "App", Timestamp: 1012, Duration: 10}))

	require.NoError(t, b.AddUserTimingMark(model.UserTimingMark{Name: "hydrated", Timestamp: 1090}))

	data, err := b.Freeze()
	require.NoError(t, err)
	return data
}

func TestRoundTrip(t *testing.T) {
	for _, compression := range []tracefile.Compression{tracefile.CompressionNone, tracefile.CompressionZstd} {
		t.Run(string(compression), func(t *testing.T) {
			data := newProfile(t)
			f := tracefile.NewFile(data)

			var buf bytes.Buffer
			require.NoError(t, tracefile.Encode(&buf, f, compression))
			assert.NotEqual(t, uuid.Nil, f.SessionID)

			decoded, err := tracefile.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, f.SessionID, decoded.SessionID)
			assert.Equal(t, tracefile.CurrentVersion, decoded.Version)
			require.Equal(t, data, decoded.Data)
		})
	}
}

func TestRoundTripFractionalSpan(t *testing.T) {
	b := builder.New(0.1, 0.2)
	require.NoError(t, b.AddUserTimingMark(model.UserTimingMark{Name: "tick", Timestamp: 0.25}))
	data, err := b.Freeze()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tracefile.Encode(&buf, tracefile.NewFile(data), tracefile.CompressionNone))
	decoded, err := tracefile.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, model.Milliseconds(0.2), decoded.Data.Duration)
	require.Equal(t, data, decoded.Data)
}

func TestWireSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tracefile.Encode(&buf, tracefile.NewFile(newProfile(t)), tracefile.CompressionNone))

	var doc struct {
		Version   int    `json:"version"`
		SessionID string `json:"sessionId"`
		Data      struct {
			StartTime    float64          `json:"startTime"`
			NativeEvents []map[string]any `json:"nativeEvents"`
			ReactEvents  []map[string]any `json:"reactEvents"`
			Measures     []map[string]any `json:"measures"`
			Flamechart   [][]map[string]any
			Marks        []map[string]any `json:"otherUserTimingMarks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, 1000.0, doc.Data.StartTime)
	assert.Equal(t, []any{"long task"}, doc.Data.NativeEvents[0]["warnings"])
	assert.Nil(t, doc.Data.NativeEvents[1]["warnings"])

	render := doc.Data.ReactEvents[2]
	assert.Equal(t, "schedule-render", render["type"])
	assert.Equal(t, []any{1.0, 2.0}, render["lanes"])
	assert.Equal(t, []any{"Sync", "InputContinuous"}, render["laneLabels"])
	assert.NotContains(t, render, "isCascading")

	update := doc.Data.ReactEvents[3]
	assert.Equal(t, false, update["isCascading"])
	assert.Equal(t, "App", update["componentName"])

	suspend := doc.Data.ReactEvents[0]
	assert.Equal(t, "A", suspend["id"])
	assert.NotContains(t, suspend, "lanes")

	measure := doc.Data.Measures[0]
	assert.Equal(t, 1.0, measure["batchUID"])
	assert.Equal(t, "render-idle", measure["type"])
	assert.Equal(t, "completed", measure["status"])

	frame := doc.Data.Flamechart[0][0]
	assert.Equal(t, "https://example.com/react-dom.js", frame["scriptUrl"])
	assert.Equal(t, 120.0, frame["locationLine"])
	assert.NotContains(t, doc.Data.Flamechart[1][0], "scriptUrl")

	assert.Equal(t, "hydrated", doc.Data.Marks[0]["name"])
}

const emptyProfile = `"startTime":0,"duration":10,"nativeEvents":[],"measures":[],"flamechart":[],"otherUserTimingMarks":[]`

func TestDecodeErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		err  error
	}{
		{
			name: "lane label mismatch",
			doc:  `{"version":1,"data":{` + emptyProfile + `,"reactEvents":[{"type":"schedule-render","timestamp":1,"lanes":[1,2],"laneLabels":["Sync"]}]}}`,
			err:  model.ErrLaneLabelMismatch,
		},
		{
			name: "unknown event",
			doc:  `{"version":1,"data":{` + emptyProfile + `,"reactEvents":[{"type":"schedule-unknown","timestamp":1}]}}`,
			err:  builder.ErrUnknownEvent,
		},
		{
			name: "out of range",
			doc:  `{"version":1,"data":{` + emptyProfile + `,"reactEvents":[{"type":"suspense-suspend","timestamp":11,"id":"A"}]}}`,
			err:  model.ErrOutOfRange,
		},
		{
			name: "version",
			doc:  `{"version":7,"data":{}}`,
			err:  tracefile.ErrUnsupportedVersion,
		},
		{
			name: "no data",
			doc:  `{"version":1}`,
			err:  tracefile.ErrMissingData,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tracefile.Decode(strings.NewReader(tc.doc))
			require.ErrorIs(t, err, tc.err)
		})
	}

	_, err := tracefile.Decode(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json.zst")
	data := newProfile(t)
	f := tracefile.NewFile(data)

	require.NoError(t, tracefile.Save(path, f, tracefile.CompressionZstd))
	loaded, err := tracefile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, f.SessionID, loaded.SessionID)
	assert.Equal(t, data, loaded.Data)

	// Session ids survive a resave.
	require.NoError(t, tracefile.Save(path, loaded, tracefile.CompressionNone))
	again, err := tracefile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, f.SessionID, again.SessionID)

	_, err = tracefile.Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	c, err := tracefile.ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, tracefile.CompressionNone, c)

	c, err = tracefile.ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, tracefile.CompressionZstd, c)

	_, err = tracefile.ParseCompression("gzip")
	assert.Error(t, err)
}
