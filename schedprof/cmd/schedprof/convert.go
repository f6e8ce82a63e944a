package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yandex/schedprof/schedprof/pkg/must"
	"github.com/yandex/schedprof/schedprof/pkg/profile/tracefile"
	"github.com/yandex/schedprof/schedprof/pkg/xpflag"
)

var (
	convertCompression = xpflag.NewOneOf(string(tracefile.CompressionZstd), tracefile.CompressionNames()...)

	convertCmd = &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Rewrite a trace file with another compression, keeping its session id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := makeCLI(cmd)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			compression, err := tracefile.ParseCompression(convertCompression.String())
			if err != nil {
				return err
			}

			f, err := tracefile.Load(args[0])
			if err != nil {
				return err
			}
			if err := tracefile.Save(args[1], f, compression); err != nil {
				return err
			}

			app.Logger().Info(app.Context(), "Converted trace file",
				zap.String("from", args[0]),
				zap.String("to", args[1]),
				zap.String("compression", string(compression)),
			)
			return nil
		},
	}
)

func init() {
	convertCmd.Flags().Var(convertCompression, "compression", "Target compression, one of "+convertCompression.Variants())
	must.Must(convertCmd.RegisterFlagCompletionFunc("compression", convertCompression.Complete))
	rootCmd.AddCommand(convertCmd)
}
