package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yandex/schedprof/schedprof/pkg/atomicfs"
	"github.com/yandex/schedprof/schedprof/pkg/must"
	"github.com/yandex/schedprof/schedprof/pkg/profile/flamegraph/export"
	"github.com/yandex/schedprof/schedprof/pkg/profile/tracefile"
	"github.com/yandex/schedprof/schedprof/pkg/xpflag"
)

const (
	collapsedFormat = "collapsed"
	pprofFormat     = "pprof"
)

var (
	flamegraphFormat = xpflag.NewOneOf(collapsedFormat, collapsedFormat, pprofFormat)
	flamegraphOutput string

	flamegraphCmd = &cobra.Command{
		Use:   "flamegraph FILE",
		Short: "Export the flamechart of a trace file as collapsed stacks or pprof",
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

			stacks := export.Collapse(f.Data.Flamechart)
			err = atomicfs.WriteWith(flamegraphOutput, func(w io.Writer) error {
				switch flamegraphFormat.String() {
				case pprofFormat:
					return export.FlamechartToPProf(f.Data).Write(w)
				default:
					return export.WriteCollapsed(w, stacks)
				}
			})
			if err != nil {
				return err
			}

			app.Logger().Info(app.Context(), "Exported flamegraph",
				zap.String("path", flamegraphOutput),
				zap.String("format", flamegraphFormat.String()),
				zap.Int("stacks", len(stacks)),
			)
			return nil
		},
	}
)

func init() {
	flamegraphCmd.Flags().Var(flamegraphFormat, "format", "Output format, one of "+flamegraphFormat.Variants())
	flamegraphCmd.Flags().StringVarP(&flamegraphOutput, "output", "o", "", "Output path")

	must.Must(flamegraphCmd.MarkFlagRequired("output"))
	must.Must(flamegraphCmd.MarkFlagFilename("output"))
	must.Must(flamegraphCmd.RegisterFlagCompletionFunc("format", flamegraphFormat.Complete))
	rootCmd.AddCommand(flamegraphCmd)
}
