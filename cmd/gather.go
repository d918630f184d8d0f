package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgather/internal/model"
)

// leadGatherer is the part of the pipeline the commands depend on.
type leadGatherer interface {
	GatherLeads(ctx context.Context, opts model.LeadQueryOptions) ([]model.Lead, error)
}

var (
	gatherStates  []string
	gatherTarget  int
	gatherKeyword string
)

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Run the lead pipeline once and print the leads as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := model.LeadQueryOptions{
			States:      parseStates(strings.Join(gatherStates, ",")),
			TargetTotal: gatherTarget,
			Keyword:     gatherKeyword,
		}
		return runGather(ctx, env.Pipeline, opts, os.Stdout)
	},
}

// runGather runs one pipeline call and writes the envelope to w.
func runGather(ctx context.Context, g leadGatherer, opts model.LeadQueryOptions, w io.Writer) error {
	start := time.Now()
	leads, err := g.GatherLeads(ctx, opts)
	if err != nil {
		return eris.Wrap(err, "gather leads")
	}

	zap.L().Info("gather complete",
		zap.Int("leads", len(leads)),
		zap.Duration("elapsed", time.Since(start)),
	)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(model.NewLeadsResponse(leads, time.Now())); err != nil {
		return eris.Wrap(err, "encode leads")
	}
	return nil
}

func init() {
	gatherCmd.Flags().StringSliceVar(&gatherStates, "states", nil, "two-letter state codes, comma separated (default from config)")
	gatherCmd.Flags().IntVar(&gatherTarget, "target", 0, "desired number of leads (default from config)")
	gatherCmd.Flags().StringVar(&gatherKeyword, "keyword", "", "role search term (default from config)")
	rootCmd.AddCommand(gatherCmd)
}
