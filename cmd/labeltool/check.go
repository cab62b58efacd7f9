package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fiddle/internal/label"
	"fiddle/internal/labeltool"
)

func newCheckCmd(a *app) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Validate label requirements of source files",
		Long: `Scan each file with requirement checking. Every label of a file that
fails is listed and the command exits with status 1.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args, tag)
		},
	}
	cmd.Flags().StringVar(&tag, "type", "", "only check labels of this type")
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, args []string, tag string) error {
	res, err := a.resolve(cmd, "")
	if err != nil {
		return err
	}
	tool, err := a.newTool(res, true)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	bad := color.New(color.FgRed, color.Bold)
	idx := a.timer.Begin("check")
	defer a.timer.End(idx, "")

	failed := 0
	for _, arg := range args {
		file, err := relFile(res.Root, arg)
		if err != nil {
			return err
		}
		labels, err := tool.ScanFile(cmd.Context(), file, res.Root, labeltool.ScanOptions{Tag: tag, Check: true})
		var violation *label.RequirementViolationError
		switch {
		case errors.As(err, &violation):
			failed++
			fmt.Fprintf(out, "%s %s: %s requires a companion for %v\n",
				bad.Sprint("FAIL"), file, violation.Tag, violation.Missing)
			for _, l := range violation.Labels {
				fmt.Fprintf(out, "    %s\n", l)
			}
		case err != nil:
			return err
		case !quiet:
			fmt.Fprintf(out, "ok   %s (%d labels)\n", file, len(labels))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files violate label requirements", failed, len(args))
	}
	return nil
}
