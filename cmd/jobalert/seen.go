package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "Inspect the persisted seen set",
}

var seenListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every seen posting id, one per line",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSeen(cmd.Context(), func(ids []string) {
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
		})
	},
}

var seenCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of seen posting ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSeen(cmd.Context(), func(ids []string) {
			fmt.Fprintln(cmd.OutOrStdout(), len(ids))
		})
	},
}

func init() {
	seenCmd.AddCommand(seenListCmd)
	seenCmd.AddCommand(seenCountCmd)
	rootCmd.AddCommand(seenCmd)
}

// withSeen loads the seen set without requiring source or sink credentials.
func withSeen(ctx context.Context, fn func(ids []string)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, env, doc, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, doc, env)
	if err != nil {
		return fmt.Errorf("open seen store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close seen store", "error", err)
		}
	}()
	seen, err := store.Load(ctx)
	if err != nil {
		return err
	}
	fn(seen.IDs())
	return nil
}
