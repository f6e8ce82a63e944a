package xpflag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type OneOf struct {
	allowed []string
	value   string
}

// Set implements pflag.Value.
func (o *OneOf) Set(value string) error {
	if !slices.Contains(o.allowed, value) {
		return fmt.Errorf("unexpected value %q, expected one of [%v]", value, o.Variants())
	}
	o.value = value
	return nil
}

// String implements pflag.Value.
func (o *OneOf) String() string {
	return o.value
}

// Type implements pflag.Value.
func (o *OneOf) Type() string {
	return "string"
}

func (o *OneOf) Variants() string {
	return strings.Join(o.allowed, ", ")
}

func NewOneOf(defaul string, allowed ...string) *OneOf {
	return &OneOf{allowed, defaul}
}

// Allow to use OneOf flags in the cobra autocompletion framework.
//
// format := xpflag.NewOneOf("collapsed", "collapsed", "pprof")
// cmd.Flags().Var(format, "format", "output format, one of "+format.Variants())
// cmd.RegisterFlagCompletionFunc("format", format.Complete)
func (o *OneOf) Complete(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return o.allowed, cobra.ShellCompDirectiveKeepOrder | cobra.ShellCompDirectiveNoFileComp
}

var _ pflag.Value = (*OneOf)(nil)

////////////////////////////////////////////////////////////////////////////////

// ManyOf is a repeatable flag accepting comma-separated values from a fixed set.
// Duplicates are collapsed, first occurrence wins.
type ManyOf struct {
	allowed []string
	values  []string
}

// Set implements pflag.Value.
func (m *ManyOf) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !slices.Contains(m.allowed, v) {
			return fmt.Errorf("unexpected value %q, expected any of [%v]", v, m.Variants())
		}
		if !slices.Contains(m.values, v) {
			m.values = append(m.values, v)
		}
	}
	return nil
}

// String implements pflag.Value.
func (m *ManyOf) String() string {
	return strings.Join(m.values, ",")
}

// Type implements pflag.Value.
func (m *ManyOf) Type() string {
	return "strings"
}

func (m *ManyOf) Values() []string {
	return slices.Clone(m.values)
}

func (m *ManyOf) Variants() string {
	return strings.Join(m.allowed, ", ")
}

func (m *ManyOf) Complete(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return m.allowed, cobra.ShellCompDirectiveKeepOrder | cobra.ShellCompDirectiveNoFileComp
}

func NewManyOf(allowed ...string) *ManyOf {
	return &ManyOf{allowed: allowed}
}

var _ pflag.Value = (*ManyOf)(nil)
