package model

import (
	"slices"
)

// Milliseconds relative to the page time origin.
type Milliseconds float64

func (m Milliseconds) Micros() int64 {
	return int64(m * 1000)
}

// Lane is a numeric priority channel of the scheduling runtime.
type Lane int

type BatchUID int

////////////////////////////////////////////////////////////////////////////////

// LaneLabel binds a lane to its human readable name.
type LaneLabel struct {
	Lane  Lane
	Label string
}

// Lanes is an ordered sequence of lanes with their labels.
// Lanes and labels cannot drift apart since they are stored pairwise.
type Lanes []LaneLabel

func NewLanes(lanes []Lane, labels []string) (Lanes, error) {
	if len(lanes) != len(labels) {
		return nil, newLaneLabelMismatch(len(lanes), len(labels))
	}
	res := make(Lanes, len(lanes))
	for i := range lanes {
		res[i] = LaneLabel{Lane: lanes[i], Label: labels[i]}
	}
	return res, nil
}

func (l Lanes) IDs() []Lane {
	res := make([]Lane, len(l))
	for i, lane := range l {
		res[i] = lane.Lane
	}
	return res
}

func (l Lanes) Labels() []string {
	res := make([]string, len(l))
	for i, lane := range l {
		res[i] = lane.Label
	}
	return res
}

func (l Lanes) Contains(lane Lane) bool {
	return slices.ContainsFunc(l, func(x LaneLabel) bool {
		return x.Lane == lane
	})
}

// Union appends lanes from other which are not present yet, keeping first-seen order.
func (l Lanes) Union(other Lanes) Lanes {
	res := slices.Clone(l)
	for _, lane := range other {
		if !res.Contains(lane.Lane) {
			res = append(res, lane)
		}
	}
	return res
}

func (l Lanes) Clone() Lanes {
	return slices.Clone(l)
}

////////////////////////////////////////////////////////////////////////////////

type NativeEvent struct {
	Depth     int
	Duration  Milliseconds
	Timestamp Milliseconds
	Type      string
	// Sorted and deduplicated, nil when there are no warnings.
	Warnings []string
}

func (e *NativeEvent) End() Milliseconds {
	return e.Timestamp + e.Duration
}

func (e *NativeEvent) HasWarning(warning string) bool {
	_, found := slices.BinarySearch(e.Warnings, warning)
	return found
}

type UserTimingMark struct {
	Name      string
	Timestamp Milliseconds
}
