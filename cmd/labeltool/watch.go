package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fiddle/internal/label"
	"fiddle/internal/labeltool"
	"fiddle/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check labels of source files as they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before re-checking (default: [watch].debounce)")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, debounce time.Duration) error {
	res, err := a.resolve(cmd, "")
	if err != nil {
		return err
	}
	tool, err := a.newTool(res, true)
	if err != nil {
		return err
	}
	if debounce <= 0 {
		if debounce, err = res.Config.DebounceWindow(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(watch.Options{
		Root:     res.Root,
		Config:   res.Config,
		Debounce: debounce,
		Logger:   a.logger,
	}, func(ctx context.Context, changed, removed []string) {
		for _, file := range removed {
			a.logger.Info("source removed", zap.String("file", file))
		}
		for _, file := range changed {
			recheck(ctx, cmd, a.logger, tool, res.Root, file)
		}
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// recheck scans one changed file and reports its requirement status.
func recheck(ctx context.Context, cmd *cobra.Command, logger *zap.Logger, tool *labeltool.Tool, root, file string) {
	labels, err := tool.ScanFile(ctx, file, root, labeltool.ScanOptions{Check: true})
	var violation *label.RequirementViolationError
	switch {
	case errors.As(err, &violation):
		logger.Warn("label requirements violated",
			zap.String("file", file),
			zap.String("type", violation.Tag),
			zap.Strings("unpaired", violation.Missing))
		fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", file, violation)
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("changed file vanished", zap.String("file", file))
	case err != nil:
		logger.Error("scan failed", zap.String("file", file), zap.Error(err))
	default:
		logger.Debug("labels ok", zap.String("file", file), zap.Int("labels", len(labels)))
		fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d labels)\n", file, len(labels))
	}
}
