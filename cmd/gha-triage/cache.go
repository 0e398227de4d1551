package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altinukshini/gha-triage/internal/cache"
	"github.com/altinukshini/gha-triage/internal/ui"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage downloaded run logs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc, err := openCache(cmd)
			if err != nil {
				return err
			}
			entries, err := lc.ListEntries()
			if err != nil {
				return err
			}
			total, err := lc.TotalSize()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderCacheEntries(entries, total, width(cmd.OutOrStdout())))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Remove expired logs and shrink the cache to its size limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc, err := openCache(cmd)
			if err != nil {
				return err
			}
			return lc.Evict()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc, err := openCache(cmd)
			if err != nil {
				return err
			}
			if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
				fmt.Fprintf(cmd.OutOrStdout(), "would clear %s\n", lc.Dir())
				return nil
			}
			if err := lc.DeleteAll(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", lc.Dir())
			return nil
		},
	})
	return cmd
}

func openCache(cmd *cobra.Command) (*cache.LogCache, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cache.NewLogCache(cfg.CacheDir, cfg.CacheSizeMB, cfg.CacheTTL)
}
