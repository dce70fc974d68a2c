package handlers

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the analysis cache management command.
func NewCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the analysis cache",
	}
	cacheCmd.AddCommand(newCacheStatsCmd())
	cacheCmd.AddCommand(newCacheCleanupCmd())
	cacheCmd.AddCommand(newCacheClearCmd())
	return cacheCmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and storage usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.Cache.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Entries: %d\n", stats.Entries)
			fmt.Printf("Total size: %d bytes\n", stats.TotalSize)
			if !stats.Oldest.IsZero() {
				fmt.Printf("Oldest: %s\n", stats.Oldest.Format("2006-01-02 15:04:05"))
				fmt.Printf("Newest: %s\n", stats.Newest.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newCacheCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			removed, err := app.Cache.CleanupExpired()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired entries\n", removed)
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				return fmt.Errorf("refusing to clear the cache without --confirm")
			}
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Cache.Clear(); err != nil {
				return err
			}
			fmt.Println("Cache cleared.")
			return nil
		},
	}
	clearCmd.Flags().Bool("confirm", false, "skip confirmation")
	return clearCmd
}
