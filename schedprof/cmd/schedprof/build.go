package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yandex/schedprof/schedprof/pkg/must"
	"github.com/yandex/schedprof/schedprof/pkg/profile/recording"
	"github.com/yandex/schedprof/schedprof/pkg/profile/tracefile"
	"github.com/yandex/schedprof/schedprof/pkg/xpflag"
)

type buildOptions struct {
	output      string
	compression *xpflag.OneOf
	depthLimit  int
}

func (o *buildOptions) Bind(cmd *cobra.Command) {
	o.compression = xpflag.NewOneOf("", tracefile.CompressionNames()...)

	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Path of the trace file to write")
	cmd.Flags().Var(o.compression, "compression", "Trace file compression, one of "+o.compression.Variants())
	cmd.Flags().IntVar(&o.depthLimit, "depth-limit", 0, "Drop flamechart frames at this depth and deeper, 0 keeps all")

	must.Must(cmd.MarkFlagRequired("output"))
	must.Must(cmd.MarkFlagFilename("output"))
	must.Must(cmd.RegisterFlagCompletionFunc("compression", o.compression.Complete))
}

func makeBuildCmd() *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build RECORDING",
		Short: "Replay a recording and save the resulting trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := makeCLI(cmd)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			conf := app.Config()
			if opts.compression.String() != "" {
				conf.Compression = opts.compression.String()
			}
			if cmd.Flags().Changed("depth-limit") {
				conf.FrameDepthLimit = opts.depthLimit
			}
			compression, err := tracefile.ParseCompression(conf.Compression)
			if err != nil {
				return err
			}

			rec, err := recording.Load(args[0])
			if err != nil {
				return err
			}
			data, err := recording.Replay(app.Context(), rec,
				recording.WithLogger(app.Logger().WithName("replay")),
				recording.WithDepthLimit(conf.FrameDepthLimit),
			)
			if err != nil {
				return err
			}

			file := tracefile.NewFile(data)
			if err := tracefile.Save(opts.output, file, compression); err != nil {
				return err
			}

			app.Logger().Info(app.Context(), "Saved trace file",
				zap.String("path", opts.output),
				zap.Stringer("session", file.SessionID),
				zap.String("compression", string(compression)),
			)
			return nil
		},
	}
	opts.Bind(cmd)
	return cmd
}

func init() {
	rootCmd.AddCommand(makeBuildCmd())
}
