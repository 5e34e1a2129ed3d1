package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rtt-collect/internal/collect"
	"rtt-collect/internal/report"
)

var (
	tracePrintOnly bool
	traceBreakdown string
	traceHopPlot   string
)

var traceCmd = &cobra.Command{
	Use:   "trace HOST...",
	Short: "Trace the route to hosts and print per-hop latency",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		runID := uuid.NewString()
		writer, cleanup, err := newWriters(ctx, writerOptions{printOnly: tracePrintOnly, runID: runID})
		if err != nil {
			return err
		}
		defer cleanup()

		c := collect.New(nil, newTracer(cfg), nil, writer)
		c.RunID = runID
		traces, err := c.Breakdown(ctx, args)
		if err != nil {
			return err
		}
		if traceBreakdown == "" && traceHopPlot == "" {
			return nil
		}
		hosts := make([]string, len(traces))
		hops := make([][]float64, len(traces))
		incs := make([][]float64, len(traces))
		for i, tr := range traces {
			hosts[i], hops[i], incs[i] = tr.Host, tr.Hops, tr.Increases
		}
		if traceBreakdown != "" {
			if err := report.LatencyBreakdown(traceBreakdown, hosts, incs); err != nil {
				return err
			}
		}
		if traceHopPlot != "" {
			return report.HopVsRTT(traceHopPlot, hosts, hops)
		}
		return nil
	},
}

func init() {
	traceCmd.Flags().BoolVar(&tracePrintOnly, "print-only", false, "Print results to STDOUT instead of writing to DB")
	traceCmd.Flags().StringVar(&traceBreakdown, "breakdown", "", "Also write the latency breakdown chart to this file")
	traceCmd.Flags().StringVar(&traceHopPlot, "hop-plot", "", "Also write the hop count vs RTT chart to this file")
}
