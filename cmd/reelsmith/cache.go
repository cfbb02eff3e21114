package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kikiluvv/reelsmith/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Speech cache commands",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and entry count",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		st, err := cache.Stats()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dir:     %s\n", cache.Dir())
		fmt.Fprintf(out, "entries: %d\n", st.Entries)
		fmt.Fprintf(out, "size:    %s / %s\n", humanBytes(st.Bytes), humanBytes(st.MaxBytes))
		if st.Entries > 0 {
			fmt.Fprintf(out, "oldest:  %s\n", st.Oldest.Format(time.DateTime))
			fmt.Fprintf(out, "newest:  %s\n", st.Newest.Format(time.DateTime))
		}
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Evict least recently used entries over the size budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		n, err := cache.Prune()
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
		return err
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached narration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		n, err := cache.Clear()
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
		return err
	},
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)
}
