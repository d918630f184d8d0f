package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgather/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the enrichment lookup cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired enrichment cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := store.Open(ctx, cfg.Cache.Driver, cfg.Cache.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		if c == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "cache is disabled (cache.driver: none)")
			return nil
		}
		defer c.Close() //nolint:errcheck

		return pruneCache(ctx, c, cmd.OutOrStdout())
	},
}

func pruneCache(ctx context.Context, c store.Cache, w io.Writer) error {
	n, err := c.DeleteExpired(ctx)
	if err != nil {
		return eris.Wrap(err, "prune cache")
	}
	zap.L().Info("cache pruned", zap.Int("deleted", n))
	fmt.Fprintf(w, "deleted %d expired entries\n", n)
	return nil
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
