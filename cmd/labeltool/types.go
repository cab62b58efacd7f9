package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"fiddle/internal/label"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered label types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := label.NewBuiltinRegistry()
			out := cmd.OutOrStdout()
			for _, tag := range reg.Tags() {
				typ, _ := reg.Lookup(tag)
				fmt.Fprintf(out, "%-10s %s", tag, strings.Join(typ.Values, "|"))
				if reqs := formatRequires(typ); reqs != "" {
					fmt.Fprintf(out, "  requires %s", reqs)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func formatRequires(t label.Type) string {
	keys := make([]string, 0, len(t.Requires))
	for k := range t.Requires {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "->" + strings.Join(t.Requires[k], "|")
	}
	return strings.Join(parts, ", ")
}
