package main

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rtt-collect/internal/collect"
	"rtt-collect/internal/config"
	"rtt-collect/internal/logging"
	"rtt-collect/internal/targets"
)

var (
	runInput     string
	runOutputDir string
	runCount     int
	runMethod    string
	runSeed      int64
	runSample    int
	runPrintOnly bool
	runLogFile   string
	runTUI       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full collection and write results and charts",
	Long: "run pings and geolocates every server of the input list plus the caller's public " +
		"address, writes ping_result.json and the distance chart, then traces a random sample " +
		"for the latency breakdown and hop-count charts.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRunFlags(cmd, cfg)
		ctx := cmd.Context()
		log := logging.FromContext(ctx)

		hosts, err := targets.Load(cfg.Input)
		if err != nil {
			return err
		}
		prober, err := newProber(cfg)
		if err != nil {
			return err
		}

		runID := uuid.NewString()
		writer, cleanup, err := newWriters(ctx, writerOptions{
			printOnly: runPrintOnly,
			logFile:   runLogFile,
			tui:       runTUI,
			runID:     runID,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		c := collect.New(prober, newTracer(cfg), newGeolocator(cfg), writer)
		c.RunID = runID

		seed := uint64(cfg.Sample.Seed)
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		log.Debug("sampling seed", "seed", seed)

		_, err = c.Run(ctx, collect.Options{
			Hosts:      hosts,
			SampleSize: cfg.Sample.Size,
			Rand:       rand.New(rand.NewPCG(seed, seed)),
			Files: collect.Files{
				Results:       cfg.Path(cfg.Output.Results),
				DistancePlot:  cfg.Path(cfg.Output.DistancePlot),
				BreakdownPlot: cfg.Path(cfg.Output.BreakdownPlot),
				HopPlot:       cfg.Path(cfg.Output.HopPlot),
			},
		})
		return err
	},
}

// applyRunFlags overrides configuration values with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		c.Input = runInput
	}
	if flags.Changed("output-dir") {
		c.Output.Dir = runOutputDir
	}
	if flags.Changed("count") {
		c.Ping.Count = runCount
	}
	if flags.Changed("method") {
		c.Ping.Method = runMethod
	}
	if flags.Changed("seed") {
		c.Sample.Seed = runSeed
	}
	if flags.Changed("sample") {
		c.Sample.Size = runSample
	}
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", config.DefaultInput, "Path to the iperf3 server list (JSON)")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", ".", "Directory for result and chart files")
	runCmd.Flags().IntVar(&runCount, "count", 3, "Echo requests per host")
	runCmd.Flags().StringVar(&runMethod, "method", config.MethodExec, "Probe method: exec (system ping) or icmp")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Seed for the traced host sample (0 = random)")
	runCmd.Flags().IntVar(&runSample, "sample", 5, "Number of hosts traced for the breakdown charts")
	runCmd.Flags().BoolVar(&runPrintOnly, "print-only", false, "Print results to STDOUT instead of writing to DB")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Path to export results as JSONL (traces go to <file>.traces)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show live results in a terminal UI")
}
