package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yandex/schedprof/schedprof/pkg/profile/tracefile"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check that trace files decode and satisfy every profile invariant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := makeCLI(cmd)
		if err != nil {
			return err
		}
		defer app.Shutdown()

		ctx := app.Context()
		errs := make([]error, len(args))

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(app.Config().Parallelism)
		for i, path := range args {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					return nil
				}
				f, err := tracefile.Load(path)
				if err != nil {
					errs[i] = err
					app.Logger().Warn(ctx, "Invalid trace file", zap.String("path", path), zap.Error(err))
					return nil
				}
				app.Logger().Debug(ctx, "Valid trace file",
					zap.String("path", path),
					zap.Stringer("session", f.SessionID),
				)
				return nil
			})
		}
		_ = g.Wait()

		out := cmd.OutOrStdout()
		for i, path := range args {
			if errs[i] == nil {
				fmt.Fprintf(out, "OK %s\n", path)
			} else {
				fmt.Fprintf(out, "FAIL %s: %v\n", path, errs[i])
			}
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
