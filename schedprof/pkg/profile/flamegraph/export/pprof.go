package export

import (
	"slices"

	"github.com/google/pprof/profile"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

const (
	SampleType = "wall"
	SampleUnit = "microseconds"
)

// ToPProf converts collapsed stacks into a pprof profile sharing one location per frame name.
func ToPProf(stacks []Stack) *profile.Profile {
	res := &profile.Profile{
		SampleType: []*profile.ValueType{{
			Type: SampleType,
			Unit: SampleUnit,
		}},
		DefaultSampleType: SampleType,
		Sample:            make([]*profile.Sample, len(stacks)),
	}

	locations := make(map[string]*profile.Location)
	for i := range stacks {
		sample := &profile.Sample{
			Value:    []int64{stacks[i].Value},
			Location: make([]*profile.Location, 0, len(stacks[i].Frames)),
		}
		for _, name := range stacks[i].Frames {
			loc, found := locations[name]
			if !found {
				fn := &profile.Function{
					ID:   1 + uint64(len(res.Function)),
					Name: name,
				}
				loc = &profile.Location{
					ID:   1 + uint64(len(res.Location)),
					Line: []profile.Line{{Function: fn}},
				}
				locations[name] = loc
				res.Function = append(res.Function, fn)
				res.Location = append(res.Location, loc)
			}
			sample.Location = append(sample.Location, loc)
		}
		// pprof lists the leaf first.
		slices.Reverse(sample.Location)
		res.Sample[i] = sample
	}
	return res
}

// FlamechartToPProf collapses the flamechart and converts it, stamping the trace window.
func FlamechartToPProf(data *model.ProfilerData) *profile.Profile {
	res := ToPProf(Collapse(data.Flamechart))
	res.TimeNanos = data.StartTime.Micros() * 1000
	res.DurationNanos = data.Duration.Micros() * 1000
	return res
}
