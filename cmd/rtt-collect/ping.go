package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rtt-collect/internal/collect"
)

var (
	pingCount     int
	pingMethod    string
	pingPrintOnly bool
)

var pingCmd = &cobra.Command{
	Use:   "ping HOST...",
	Short: "Probe and geolocate hosts without writing charts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("count") {
			cfg.Ping.Count = pingCount
		}
		if cmd.Flags().Changed("method") {
			cfg.Ping.Method = pingMethod
		}
		ctx := cmd.Context()
		prober, err := newProber(cfg)
		if err != nil {
			return err
		}
		g := newGeolocator(cfg)
		self, err := g.MyLocation(ctx)
		if err != nil {
			return err
		}
		runID := uuid.NewString()
		writer, cleanup, err := newWriters(ctx, writerOptions{printOnly: pingPrintOnly, runID: runID})
		if err != nil {
			return err
		}
		defer cleanup()

		c := collect.New(prober, nil, g, writer)
		c.RunID = runID
		_, err = c.Ping(ctx, self, args)
		return err
	},
}

func init() {
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Echo requests per host")
	pingCmd.Flags().StringVar(&pingMethod, "method", "exec", "Probe method: exec (system ping) or icmp")
	pingCmd.Flags().BoolVar(&pingPrintOnly, "print-only", false, "Print results to STDOUT instead of writing to DB")
}
