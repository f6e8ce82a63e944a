package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yandex/schedprof/schedprof/pkg/must"
	"github.com/yandex/schedprof/schedprof/pkg/profile/hover"
	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
	"github.com/yandex/schedprof/schedprof/pkg/profile/tracefile"
	"github.com/yandex/schedprof/schedprof/pkg/xpflag"
)

var (
	hoverAt         float64
	hoverRadius     float64
	hoverDepth      int
	hoverCategories = xpflag.NewManyOf(append(hover.CategoryNames(), "all")...)

	hoverCmd = &cobra.Command{
		Use:   "hover FILE",
		Short: "Print items under a pointer position as JSON",
		Long: "Print items under a pointer position as JSON.\n" +
			"Without --category only the first hit is reported, in the order " +
			"react event, measure, native event, user timing mark, frame.",
		Args: cobra.ExactArgs(1),
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

			q := hover.Query{
				At:     model.Milliseconds(hoverAt),
				Radius: app.Config().Hover.Radius,
			}
			if cmd.Flags().Changed("radius") {
				q.Radius = model.Milliseconds(hoverRadius)
			}
			if hoverDepth >= 0 {
				depth := hoverDepth
				q.Depth = &depth
			}
			for _, name := range hoverCategories.Values() {
				c, err := hover.ParseCategory(name)
				if err != nil {
					return err
				}
				q.Categories |= c
			}

			info := hover.New(f.Data).Resolve(q)
			raw, err := tracefile.MarshalHover(info)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
)

func init() {
	hoverCmd.Flags().Float64Var(&hoverAt, "at", 0, "Pointer time in milliseconds")
	hoverCmd.Flags().Float64Var(&hoverRadius, "radius", 0, "Hit tolerance in milliseconds for point items")
	hoverCmd.Flags().IntVar(&hoverDepth, "depth", -1, "Flamechart layer under the pointer, -1 for the innermost")
	hoverCmd.Flags().Var(hoverCategories, "category", "Comma separated categories to resolve, any of "+hoverCategories.Variants())

	must.Must(hoverCmd.MarkFlagRequired("at"))
	must.Must(hoverCmd.RegisterFlagCompletionFunc("category", hoverCategories.Complete))
	rootCmd.AddCommand(hoverCmd)
}
