package main

import (
	"github.com/spf13/cobra"

	"rtt-collect/internal/logging"
	"rtt-collect/internal/sink"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a results log file",
	Long:  "replay feeds host results and traces from a --log-file export back into GreptimeDB or STDOUT.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		writer, cleanup, err := newWriters(ctx, writerOptions{printOnly: replayPrintOnly})
		if err != nil {
			return err
		}
		defer cleanup()
		results, traces, err := sink.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
		logging.FromContext(ctx).Info("replay finished", "results", results, "traces", traces)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to a results log written with --log-file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "Playback speed multiplier (0 = no delay)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print results to STDOUT instead of writing to DB")
	_ = replayCmd.MarkFlagRequired("input")
}
