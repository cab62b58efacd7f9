package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fiddle/internal/label"
	"fiddle/internal/labeltool"
)

func newInsertCmd(a *app) *cobra.Command {
	var line int
	cmd := &cobra.Command{
		Use:   "insert FILE --type T --name N --stage S --value V --line K",
		Short: "Insert a label above line K and rewrite the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInsert(cmd, args[0], line)
		},
	}
	addLabelFlags(cmd)
	cmd.Flags().IntVar(&line, "line", 0, "line the label is written at (1-based)")
	for _, name := range []string{"type", "name", "stage", "value", "line"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) runInsert(cmd *cobra.Command, arg string, line int) error {
	fl, tool, err := a.openFile(cmd, arg)
	if err != nil {
		return err
	}
	m, err := parseLabelFlags(cmd, tool.Registry())
	if err != nil {
		return err
	}
	if m.Name == "" {
		return fmt.Errorf("--name must not be empty")
	}
	l, err := tool.Target(fl.File(), fl.Path(), line, m)
	if err != nil {
		return err
	}
	inserted, err := fl.Insert(l)
	if err != nil {
		return err
	}
	if !inserted {
		existing, _ := fl.Lookup(l)
		if existing.Name != l.Name {
			return fmt.Errorf("insert %s: collides with %s: %w", l, existing, label.ErrLabelExists)
		}
		a.report(cmd, "already present %s", existing)
		return nil
	}
	if err := a.rewrite(cmd, fl); err != nil {
		return err
	}
	a.report(cmd, "inserted %s", l)
	return nil
}

func newRemoveCmd(a *app) *cobra.Command {
	var line int
	cmd := &cobra.Command{
		Use:   "remove FILE [--type T] [--name N] [--stage S] [--value V] [--line K]",
		Short: "Remove matching labels and rewrite the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRemove(cmd, args[0], line)
		},
	}
	addLabelFlags(cmd)
	cmd.Flags().IntVar(&line, "line", 0, "only the label at this line")
	return cmd
}

func (a *app) runRemove(cmd *cobra.Command, arg string, line int) error {
	fl, tool, err := a.openFile(cmd, arg)
	if err != nil {
		return err
	}
	m, err := parseLabelFlags(cmd, tool.Registry())
	if err != nil {
		return err
	}

	var selected []label.Label
	for _, l := range fl.Current() {
		if matchesSelector(l, m, line) {
			selected = append(selected, l)
		}
	}
	if len(selected) == 0 {
		return fmt.Errorf("%s: %w", fl.File(), label.ErrLabelNotFound)
	}
	// highest line first
	for i := len(selected) - 1; i >= 0; i-- {
		if err := fl.Remove(selected[i]); err != nil {
			return err
		}
	}
	if err := a.rewrite(cmd, fl); err != nil {
		return err
	}
	for _, l := range selected {
		a.report(cmd, "removed %s", l)
	}
	return nil
}

func matchesSelector(l label.Label, m label.Match, line int) bool {
	return (m.Tag == "" || l.Tag == m.Tag) &&
		(m.Name == "" || l.Name == m.Name) &&
		(m.Stage == "" || l.Stage == m.Stage) &&
		(m.Value == "" || l.Value == m.Value) &&
		(line == 0 || l.Line == line)
}

func newFmtCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fmt FILE...",
		Short: "Rewrite label lines in canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				fl, _, err := a.openFile(cmd, arg)
				if err != nil {
					return err
				}
				if err := a.rewrite(cmd, fl); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// openFile resolves the root and loads the labels of arg.
func (a *app) openFile(cmd *cobra.Command, arg string) (*labeltool.FileLabels, *labeltool.Tool, error) {
	res, err := a.resolve(cmd, "")
	if err != nil {
		return nil, nil, err
	}
	tool, err := a.newTool(res, true)
	if err != nil {
		return nil, nil, err
	}
	file, err := relFile(res.Root, arg)
	if err != nil {
		return nil, nil, err
	}
	fl, err := tool.Open(cmd.Context(), file, res.Root)
	if err != nil {
		return nil, nil, err
	}
	return fl, tool, nil
}

func (a *app) rewrite(cmd *cobra.Command, fl *labeltool.FileLabels) error {
	idx := a.timer.Begin("rewrite")
	defer a.timer.End(idx, fl.File())
	return fl.UpdateFile(cmd.Context())
}

// report prints a progress line unless --quiet is set.
func (a *app) report(cmd *cobra.Command, format string, args ...any) {
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); quiet {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}
