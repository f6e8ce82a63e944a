package tracefile

import (
	"encoding/json"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

type wireHover struct {
	NativeEvent          *wireNativeEvent `json:"nativeEvent"`
	ReactEvent           *wireReactEvent  `json:"reactEvent"`
	Measure              *wireMeasure     `json:"measure"`
	FlamechartStackFrame *wireFrame       `json:"flamechartStackFrame"`
	UserTimingMark       *wireMark        `json:"userTimingMark"`
}

// MarshalHover renders hovered items in the trace file schema. Missing items are null,
// the profile itself is left out.
func MarshalHover(info *model.HoverContextInfo) ([]byte, error) {
	w := wireHover{}

	if e := info.NativeEvent; e != nil {
		w.NativeEvent = &wireNativeEvent{
			Depth:     e.Depth,
			Duration:  e.Duration,
			Timestamp: e.Timestamp,
			Type:      e.Type,
			Warnings:  e.Warnings,
		}
	}
	if info.ReactEvent != nil {
		enc := &eventEncoder{}
		info.ReactEvent.Accept(enc)
		w.ReactEvent = &enc.res
	}
	if m := info.Measure; m != nil {
		w.Measure = &wireMeasure{
			Type:       m.Type,
			Lanes:      m.Lanes.IDs(),
			LaneLabels: m.Lanes.Labels(),
			Timestamp:  m.Timestamp,
			Duration:   m.Duration,
			BatchUID:   m.BatchUID,
			Depth:      m.Depth,
			Status:     m.Status,
		}
	}
	if f := info.FlamechartStackFrame; f != nil {
		frame := wireFrame(*f)
		w.FlamechartStackFrame = &frame
	}
	if m := info.UserTimingMark; m != nil {
		mark := wireMark(*m)
		w.UserTimingMark = &mark
	}

	return json.MarshalIndent(&w, "", "  ")
}
