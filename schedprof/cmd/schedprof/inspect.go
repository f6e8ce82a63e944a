package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yandex/schedprof/schedprof/pkg/profile/hover"
	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
	"github.com/yandex/schedprof/schedprof/pkg/profile/tracefile"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Print a summary of a trace file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := makeCLI(cmd)
		if err != nil {
			return err
		}
		defer app.Shutdown()

		f, err := tracefile.Load(args[0])
		if err != nil {
			return err
		}
		return inspect(cmd.OutOrStdout(), f)
	},
}

func inspect(w io.Writer, f *tracefile.File) error {
	d := f.Data
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "session\t%s\n", f.SessionID)
	fmt.Fprintf(tw, "window\t[%v, %v] ms\n", d.StartTime, d.EndTime())
	fmt.Fprintf(tw, "native events\t%d\n", len(d.NativeEvents))
	fmt.Fprintf(tw, "react events\t%d\n", len(d.ReactEvents))
	fmt.Fprintf(tw, "measures\t%d\n", len(d.Measures))
	fmt.Fprintf(tw, "flamechart\t%d layers, %d frames\n", d.Flamechart.Depth(), d.Flamechart.FrameCount())
	fmt.Fprintf(tw, "user timing marks\t%d\n", len(d.OtherUserTimingMarks))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nbatches:")
	for _, uid := range d.Batches() {
		for _, i := range d.BatchMeasures(uid) {
			m := &d.Measures[i]
			if m.Type != model.MeasureRenderIdle {
				continue
			}
			fmt.Fprintf(tw, "  #%d\t%v\t+%v ms\t%s\t%s\n", uid, m.Timestamp, m.Duration, m.Status, strings.Join(m.Lanes.Labels(), ","))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nincomplete measures:")
	for i := range d.Measures {
		m := &d.Measures[i]
		if m.Status == model.MeasureCompleted {
			continue
		}
		fmt.Fprintf(tw, "  %s\t#%d\t%v\t+%v ms\t%s\n", m.Type, m.BatchUID, m.Timestamp, m.Duration, m.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nunresolved suspense at trace end:")
	for _, e := range hover.New(d).OpenSuspenses(d.EndTime()) {
		fmt.Fprintf(tw, "  %s\t%v\t%s\n", e.ID, e.Timestamp, e.ComponentName)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
