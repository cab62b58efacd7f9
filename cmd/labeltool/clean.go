package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fiddle/internal/labelcache"
)

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove cached scan results",
		Long:  "Remove every entry of the scan cache used by summarize, check and the edit commands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.resolve(cmd, "")
			if err != nil {
				return err
			}
			dir, err := cacheDir(res)
			if err != nil {
				return err
			}
			cache, err := labelcache.Open(dir)
			if err != nil {
				return err
			}
			err = a.timer.Track("clean", func() (string, error) {
				return cache.Dir(), cache.DropAll()
			})
			if err != nil {
				return fmt.Errorf("failed to clean %q: %w", dir, err)
			}
			a.report(cmd, "removed scan cache %s", cache.Dir())
			return nil
		},
	}
}
