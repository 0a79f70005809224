// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/answer-engine/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local search response cache",
	Long: `Cache inspects and maintains the SQLite cache of search backend
responses. The cache directory comes from search.cache_dir in the config,
overridable with --cache-dir.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("%d entries (%d expired)\n", st.Entries, st.Expired)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Purge()
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired entries\n", removed)
		return nil
	},
}

func openCache(cmd *cobra.Command) (*cache.Store, error) {
	dir, _ := cmd.Flags().GetString("cache-dir")
	if dir == "" {
		dir = engineConfig().Search.CacheDir
	}
	if dir == "" {
		return nil, fmt.Errorf("no cache directory: set search.cache_dir or pass --cache-dir")
	}
	return cache.NewStore(dir, engineConfig().Search.CacheTTL)
}

func init() {
	cacheCmd.PersistentFlags().String("cache-dir", "", "cache directory (default: search.cache_dir from config)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)

	rootCmd.AddCommand(cacheCmd)
}
