package model

import "fmt"

type MeasureType string

const (
	MeasureCommit MeasureType = "commit"
	// Spans the time from the start of a render, through all yields and
	// restarts, until the commit stops or the render is cancelled.
	MeasureRenderIdle     MeasureType = "render-idle"
	MeasureRender         MeasureType = "render"
	MeasureLayoutEffects  MeasureType = "layout-effects"
	MeasurePassiveEffects MeasureType = "passive-effects"
)

// MeasureVisitor has one method per measure type. See ReactMeasure.Accept.
type MeasureVisitor interface {
	VisitCommit(m *ReactMeasure)
	VisitRenderIdle(m *ReactMeasure)
	VisitRender(m *ReactMeasure)
	VisitLayoutEffects(m *ReactMeasure)
	VisitPassiveEffects(m *ReactMeasure)
}

func ParseMeasureType(s string) (MeasureType, error) {
	switch t := MeasureType(s); t {
	case MeasureCommit, MeasureRenderIdle, MeasureRender, MeasureLayoutEffects, MeasurePassiveEffects:
		return t, nil
	}
	return "", fmt.Errorf("unknown measure type %q", s)
}

////////////////////////////////////////////////////////////////////////////////

type MeasureStatus string

const (
	MeasureCompleted MeasureStatus = "completed"
	// The render was abandoned without a commit.
	MeasureCancelled MeasureStatus = "cancelled"
	// Still running when the trace ended; the duration runs to the trace end.
	MeasureOpen MeasureStatus = "open"
)

func ParseMeasureStatus(s string) (MeasureStatus, error) {
	switch st := MeasureStatus(s); st {
	case MeasureCompleted, MeasureCancelled, MeasureOpen:
		return st, nil
	case "":
		return MeasureCompleted, nil
	}
	return "", fmt.Errorf("unknown measure status %q", s)
}

////////////////////////////////////////////////////////////////////////////////

type ReactMeasure struct {
	Type      MeasureType
	Lanes     Lanes
	Timestamp Milliseconds
	Duration  Milliseconds
	BatchUID  BatchUID
	Depth     int
	Status    MeasureStatus
}

func (m *ReactMeasure) End() Milliseconds {
	return m.Timestamp + m.Duration
}

// Covers reports whether t lies in [Timestamp, End).
func (m *ReactMeasure) Covers(t Milliseconds) bool {
	return m.Timestamp <= t && t < m.End()
}

func (m *ReactMeasure) Accept(v MeasureVisitor) {
	switch m.Type {
	case MeasureCommit:
		v.VisitCommit(m)
	case MeasureRenderIdle:
		v.VisitRenderIdle(m)
	case MeasureRender:
		v.VisitRender(m)
	case MeasureLayoutEffects:
		v.VisitLayoutEffects(m)
	case MeasurePassiveEffects:
		v.VisitPassiveEffects(m)
	default:
		panic(fmt.Sprintf("unknown measure type %q", m.Type))
	}
}

func (m ReactMeasure) Clone() ReactMeasure {
	m.Lanes = m.Lanes.Clone()
	return m
}
