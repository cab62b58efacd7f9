package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fiddle/internal/label"
	"fiddle/internal/labeltool"
)

const defaultRefWidth = 60

type summarizeOptions struct {
	check   bool
	jobs    int
	noCache bool
	showRef bool
	stage   string
	name    string
}

func newSummarizeCmd(a *app) *cobra.Command {
	var opts summarizeOptions
	cmd := &cobra.Command{
		Use:   "summarize [TYPE|all]",
		Short: "List the labels of the whole source tree grouped by file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ := "all"
			if len(args) == 1 {
				typ = args[0]
			}
			return a.runSummarize(cmd, typ, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.check, "check", false, "validate label requirements per file")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "files scanned in parallel (0 = config or GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "ignore the scan cache")
	cmd.Flags().BoolVar(&opts.showRef, "show-ref", false, "show the code line each label refers to")
	cmd.Flags().StringVarP(&opts.stage, "stage", "s", "", "only labels of stage (spl|main|.)")
	cmd.Flags().StringVar(&opts.name, "name", "", "only labels with this name")
	return cmd
}

func (a *app) runSummarize(cmd *cobra.Command, typ string, opts summarizeOptions) error {
	tree := labeltool.TreeOptions{Check: opts.check, Jobs: opts.jobs, Name: opts.name}
	if typ != "all" {
		tree.Tag = typ
	}
	if opts.stage != "" {
		stage, err := label.ParseStage(opts.stage)
		if err != nil {
			return err
		}
		tree.Stage = stage
	}

	res, err := a.resolve(cmd, "")
	if err != nil {
		return err
	}
	tool, err := a.newTool(res, !opts.noCache)
	if err != nil {
		return err
	}
	var labels []label.Label
	err = a.timer.Track("scan", func() (string, error) {
		var err error
		labels, err = tool.SearchTree(cmd.Context(), res.Root, tree)
		return strconv.Itoa(len(labels)) + " labels", err
	})
	if err != nil {
		return err
	}

	width := 0
	if opts.showRef {
		width = refWidth(cmd.OutOrStdout())
	}
	printSummary(cmd.OutOrStdout(), labels, width)
	return nil
}

// printSummary prints labels grouped by file. A positive refWidth appends
// the referenced code, truncated to that many columns.
func printSummary(w io.Writer, labels []label.Label, refWidth int) {
	header := color.New(color.FgCyan, color.Bold)
	files, groups := labeltool.GroupByFile(labels)
	for _, file := range files {
		fmt.Fprintln(w, header.Sprintf("--v---%s--v---", file))
		for _, l := range groups[file] {
			if refWidth <= 0 {
				fmt.Fprintln(w, l)
				continue
			}
			ref := strings.TrimSpace(l.RefContent)
			if l.RefLine == 0 {
				ref = "<end of file>"
			}
			fmt.Fprintf(w, "%s\t%s\n", l, runewidth.Truncate(ref, refWidth, "…"))
		}
	}
}

// refWidth picks the reference column width from the terminal size.
func refWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !isTerminal(f) {
		return defaultRefWidth
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols < 40 {
		return defaultRefWidth
	}
	return cols / 2
}
