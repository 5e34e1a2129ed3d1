package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rtt-collect/internal/config"
	"rtt-collect/internal/logging"
)

var (
	configPath string
	logLevel   string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rtt-collect",
	Short: "Network latency collector",
	Long: "rtt-collect pings and geolocates a list of iperf3 servers, traces the route to a " +
		"random sample of them and charts RTT against distance and hop count.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		logger := logging.New(cfg.LogLevel)
		cmd.SetContext(logging.NewContext(cmd.Context(), logger))
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running
// command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration YAML (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(geoCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(replayCmd)
}
