package model

import (
	"slices"
	"sort"
)

// FlamechartStackFrame is one call frame occurrence of a sampled stack trace.
type FlamechartStackFrame struct {
	Name           string
	Timestamp      Milliseconds
	Duration       Milliseconds
	ScriptURL      *string
	LocationLine   *int
	LocationColumn *int
}

func (f *FlamechartStackFrame) End() Milliseconds {
	return f.Timestamp + f.Duration
}

func (f *FlamechartStackFrame) ContainsFrame(child *FlamechartStackFrame) bool {
	return f.Timestamp <= child.Timestamp && child.End() <= f.End()
}

// FlamechartStackLayer holds all frames of the same depth, left to right in time.
// Displayed as a flamechart row.
type FlamechartStackLayer []FlamechartStackFrame

// Flamechart is indexed by stack depth.
type Flamechart []FlamechartStackLayer

// FrameAt returns the index of the frame covering t in [Timestamp, End), or -1.
func (l FlamechartStackLayer) FrameAt(t Milliseconds) int {
	// First frame starting after t; the candidate is the one before it.
	i := sort.Search(len(l), func(i int) bool {
		return l[i].Timestamp > t
	})
	if i == 0 {
		return -1
	}
	if t < l[i-1].End() {
		return i - 1
	}
	return -1
}

// Overlapping returns the frames intersecting [from, to]. The result aliases the layer.
func (l FlamechartStackLayer) Overlapping(from, to Milliseconds) FlamechartStackLayer {
	lo := sort.Search(len(l), func(i int) bool {
		return l[i].End() > from
	})
	hi := sort.Search(len(l), func(i int) bool {
		return l[i].Timestamp > to
	})
	if lo >= hi {
		return nil
	}
	return l[lo:hi]
}

// Parent returns the index of the frame in the layer containing child, or -1.
func (l FlamechartStackLayer) Parent(child *FlamechartStackFrame) int {
	i := sort.Search(len(l), func(i int) bool {
		return l[i].Timestamp > child.Timestamp
	})
	if i == 0 {
		return -1
	}
	if l[i-1].ContainsFrame(child) {
		return i - 1
	}
	return -1
}

// Containing returns the number of frames in the layer containing child.
// The layer must be ordered and free of overlaps.
func (l FlamechartStackLayer) Containing(child *FlamechartStackFrame) int {
	i := sort.Search(len(l), func(i int) bool {
		return l[i].Timestamp > child.Timestamp
	})
	n := 0
	// Frame ends do not decrease along the layer.
	for j := i - 1; j >= 0 && l[j].End() >= child.End(); j-- {
		if l[j].ContainsFrame(child) {
			n++
		}
	}
	return n
}

func (c Flamechart) Depth() int {
	return len(c)
}

func (c Flamechart) Clone() Flamechart {
	if c == nil {
		return nil
	}
	res := make(Flamechart, len(c))
	for i, layer := range c {
		res[i] = slices.Clone(layer)
	}
	return res
}

func (c Flamechart) FrameCount() int {
	n := 0
	for _, layer := range c {
		n += len(layer)
	}
	return n
}
