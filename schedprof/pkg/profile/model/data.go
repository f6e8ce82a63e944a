package model

import (
	"slices"
)

// ProfilerData is the frozen result of one profiling session.
// All sequences are ordered by timestamp; consumers share it and must not mutate it.
type ProfilerData struct {
	StartTime            Milliseconds
	Duration             Milliseconds
	NativeEvents         []NativeEvent
	ReactEvents          []ReactEvent
	Measures             []ReactMeasure
	Flamechart           Flamechart
	OtherUserTimingMarks []UserTimingMark
}

func (d *ProfilerData) EndTime() Milliseconds {
	return d.StartTime + d.Duration
}

// Contains reports whether t lies in [StartTime, EndTime], both ends inclusive.
func (d *ProfilerData) Contains(t Milliseconds) bool {
	return d.StartTime <= t && t <= d.EndTime()
}

// Batches returns batch UIDs in the order their first measure appears.
func (d *ProfilerData) Batches() []BatchUID {
	res := make([]BatchUID, 0)
	for i := range d.Measures {
		if !slices.Contains(res, d.Measures[i].BatchUID) {
			res = append(res, d.Measures[i].BatchUID)
		}
	}
	return res
}

// BatchMeasures returns indexes of measures belonging to the batch.
func (d *ProfilerData) BatchMeasures(uid BatchUID) []int {
	res := make([]int, 0)
	for i := range d.Measures {
		if d.Measures[i].BatchUID == uid {
			res = append(res, i)
		}
	}
	return res
}

func (d *ProfilerData) Clone() *ProfilerData {
	res := &ProfilerData{
		StartTime:            d.StartTime,
		Duration:             d.Duration,
		NativeEvents:         make([]NativeEvent, len(d.NativeEvents)),
		ReactEvents:          make([]ReactEvent, len(d.ReactEvents)),
		Measures:             make([]ReactMeasure, len(d.Measures)),
		Flamechart:           d.Flamechart.Clone(),
		OtherUserTimingMarks: slices.Clone(d.OtherUserTimingMarks),
	}
	for i, e := range d.NativeEvents {
		e.Warnings = slices.Clone(e.Warnings)
		res.NativeEvents[i] = e
	}
	for i, e := range d.ReactEvents {
		res.ReactEvents[i] = CloneEvent(e)
	}
	for i, m := range d.Measures {
		res.Measures[i] = m.Clone()
	}
	return res
}

////////////////////////////////////////////////////////////////////////////////

type SuspenseResolution string

const (
	SuspenseUnresolved SuspenseResolution = "unresolved"
	SuspenseResolved   SuspenseResolution = "resolved"
	SuspenseRejected   SuspenseResolution = "rejected"
)

// SuspenseSpan pairs a suspend event with the event which settled it.
type SuspenseSpan struct {
	ID         string
	Suspend    *SuspenseSuspendEvent
	Resolution SuspenseResolution
	// Nil while unresolved.
	End ReactEvent
}

// SuspenseSpans returns spans ordered by suspend time.
func (d *ProfilerData) SuspenseSpans() []SuspenseSpan {
	res := make([]SuspenseSpan, 0)
	open := make(map[string]int)
	for _, e := range d.ReactEvents {
		switch e := e.(type) {
		case *SuspenseSuspendEvent:
			open[e.ID] = len(res)
			res = append(res, SuspenseSpan{ID: e.ID, Suspend: e, Resolution: SuspenseUnresolved})
		case *SuspenseResolvedEvent:
			if i, ok := open[e.ID]; ok {
				res[i].Resolution = SuspenseResolved
				res[i].End = e
				delete(open, e.ID)
			}
		case *SuspenseRejectedEvent:
			if i, ok := open[e.ID]; ok {
				res[i].Resolution = SuspenseRejected
				res[i].End = e
				delete(open, e.ID)
			}
		}
	}
	return res
}

////////////////////////////////////////////////////////////////////////////////

// HoverContextInfo cross-references at most one item per category of Data.
// Every field is nil when nothing is hovered.
type HoverContextInfo struct {
	NativeEvent          *NativeEvent
	ReactEvent           ReactEvent
	Measure              *ReactMeasure
	Data                 *ProfilerData
	FlamechartStackFrame *FlamechartStackFrame
	UserTimingMark       *UserTimingMark
}

func (h *HoverContextInfo) Empty() bool {
	return h.NativeEvent == nil &&
		h.ReactEvent == nil &&
		h.Measure == nil &&
		h.FlamechartStackFrame == nil &&
		h.UserTimingMark == nil
}
