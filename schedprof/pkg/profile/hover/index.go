package hover

import (
	"sort"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

// intervalRow indexes intervals of one depth. Intervals are sorted by start,
// maxEnd[i] is the maximum end among the first i+1 intervals, which bounds the
// backward scan to intervals that may still cover the point.
type intervalRow struct {
	index  []int
	start  []model.Milliseconds
	end    []model.Milliseconds
	maxEnd []model.Milliseconds
}

func (r *intervalRow) add(index int, start, end model.Milliseconds) {
	maxEnd := end
	if n := len(r.maxEnd); n > 0 && r.maxEnd[n-1] > maxEnd {
		maxEnd = r.maxEnd[n-1]
	}
	r.index = append(r.index, index)
	r.start = append(r.start, start)
	r.end = append(r.end, end)
	r.maxEnd = append(r.maxEnd, maxEnd)
}

// find returns the latest starting interval covering t in [start, end), or -1.
// The scan is logarithmic while intervals of a row rarely overlap, which holds
// for measure rows. A long interval followed by many short ones at the same
// depth makes it linear in the number of intervals between them.
func (r *intervalRow) find(t model.Milliseconds) int {
	n := sort.Search(len(r.start), func(i int) bool {
		return r.start[i] > t
	})
	for j := n - 1; j >= 0 && r.maxEnd[j] > t; j-- {
		if r.end[j] > t {
			return r.index[j]
		}
	}
	return -1
}

type intervalRows []intervalRow

func (rows *intervalRows) add(depth, index int, start, end model.Milliseconds) {
	for len(*rows) <= depth {
		*rows = append(*rows, intervalRow{})
	}
	(*rows)[depth].add(index, start, end)
}

// innermost returns the match of the deepest row covering t.
func (rows intervalRows) innermost(t model.Milliseconds) int {
	for depth := len(rows) - 1; depth >= 0; depth-- {
		if i := rows[depth].find(t); i >= 0 {
			return i
		}
	}
	return -1
}

////////////////////////////////////////////////////////////////////////////////

// nearest returns the index of the time closest to t within radius, or -1.
// Among equally close times the earliest index wins.
func nearest(times []model.Milliseconds, t, radius model.Milliseconds) int {
	j := sort.Search(len(times), func(i int) bool {
		return times[i] >= t
	})

	best := -1
	var bestDist model.Milliseconds
	if j > 0 {
		prev := times[j-1]
		best = sort.Search(j, func(i int) bool {
			return times[i] >= prev
		})
		bestDist = t - prev
	}
	if j < len(times) {
		dist := times[j] - t
		if best < 0 || dist < bestDist {
			best = j
			bestDist = dist
		}
	}
	if best < 0 || bestDist > radius {
		return -1
	}
	return best
}

// lastAtOrBefore returns the greatest i with times[i] <= t, or -1.
func lastAtOrBefore(times []model.Milliseconds, t model.Milliseconds) int {
	return sort.Search(len(times), func(i int) bool {
		return times[i] > t
	}) - 1
}
