package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fiddle/internal/label"
	"fiddle/internal/labeltool"
)

type labelsOptions struct {
	csrc        string
	ssrc        string
	srcPath     string
	stage       string
	phaseOut    string
	longOut     string
	noPhases    bool
	printLongwr bool
}

func newLabelsCmd(a *app) *cobra.Command {
	var opts labelsOptions
	cmd := &cobra.Command{
		Use:   "labels (-c FILE | -S FILE)",
		Short: "Print the phase and longwrite labels of one source file",
		Long: `Print the PHASE labels (and, with -L, the LONGWRITE labels) of one
C or assembly file for the selected stage. Output files are appended to,
so the command can run once per compiled object.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLabels(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.csrc, "csrc", "c", "", "C source file to process")
	cmd.Flags().StringVarP(&opts.ssrc, "Ssrc", "S", "", "assembly file to process")
	cmd.Flags().StringVarP(&opts.srcPath, "srcpath", "p", "", "source tree root (overrides --root)")
	cmd.Flags().StringVarP(&opts.stage, "stage", "s", "spl", "stage (spl|.)")
	cmd.Flags().StringVarP(&opts.phaseOut, "phase-out", "o", "", "append phase labels to FILE (default stdout)")
	cmd.Flags().StringVarP(&opts.longOut, "longwrite-out", "l", "", "append longwrite labels to FILE (default stdout)")
	cmd.Flags().BoolVarP(&opts.noPhases, "no-phases", "P", false, "do not print phase labels")
	cmd.Flags().BoolVarP(&opts.printLongwr, "longwrites", "L", false, "print longwrite labels")
	cmd.MarkFlagsMutuallyExclusive("csrc", "Ssrc")
	cmd.MarkFlagsOneRequired("csrc", "Ssrc")
	return cmd
}

func (a *app) runLabels(cmd *cobra.Command, opts labelsOptions) error {
	stage, err := label.ParseStage(opts.stage)
	if err != nil {
		return err
	}
	res, err := a.resolve(cmd, opts.srcPath)
	if err != nil {
		return err
	}
	tool, err := a.newTool(res, true)
	if err != nil {
		return err
	}
	arg := opts.csrc
	if arg == "" {
		arg = opts.ssrc
	}
	file, err := relFile(res.Root, arg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var all []label.Label
	err = a.timer.Track("scan", func() (string, error) {
		var err error
		all, err = tool.ScanFile(ctx, file, res.Root, labeltool.ScanOptions{Stage: stage})
		return file, err
	})
	if err != nil {
		return err
	}

	if !opts.noPhases {
		if err := printTagged(cmd.OutOrStdout(), opts.phaseOut, label.TagPhase, all); err != nil {
			return err
		}
	}
	if opts.printLongwr {
		if err := printTagged(cmd.OutOrStdout(), opts.longOut, label.TagLongwrite, all); err != nil {
			return err
		}
	}
	return nil
}

// printTagged writes the labels of tag, one per line, to path opened for
// appending, or to stdout when path is empty.
func printTagged(stdout io.Writer, path, tag string, labels []label.Label) (err error) {
	w := stdout
	if path != "" {
		// #nosec G304 -- output path comes from the command line
		f, openErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if openErr != nil {
			return openErr
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()
		w = f
	}
	for _, l := range labels {
		if l.Tag != tag {
			continue
		}
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
