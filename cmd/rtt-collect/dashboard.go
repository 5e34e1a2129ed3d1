package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rtt-collect/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard for the GreptimeDB tables",
	Long:  "dashboard renders Grafana dashboards querying the rtt_results and hop_latency tables. GREPTIMEDB_DATASOURCE_UID must be set.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := dashboard.Render(dashboardOut, dashboard.DefaultTables())
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory for rendered dashboards")
}
