package collect

import (
	"context"
	"fmt"
	"math/rand/v2"

	"rtt-collect/internal/logging"
	"rtt-collect/internal/measure"
	"rtt-collect/internal/report"
)

// Files names every output of a full run.
type Files struct {
	Results       string
	DistancePlot  string
	BreakdownPlot string
	HopPlot       string
}

// Options configures Run.
type Options struct {
	Hosts      []string
	SampleSize int
	Rand       *rand.Rand
	Files      Files
}

// Outcome summarises a full run.
type Outcome struct {
	PublicIP string
	Ping     *PingSummary
	Sampled  []string
	Traces   []measure.TraceResult
}

// Run executes the whole pipeline: the caller's public address is appended to
// the hosts, every host is probed and located, the distance chart and the
// aggregate JSON are written, then a random sample is traced for the
// breakdown and hop-count charts.
func (c *Collector) Run(ctx context.Context, opts Options) (*Outcome, error) {
	log := logging.FromContext(ctx).With("run_id", c.RunID)
	ctx = logging.NewContext(ctx, log)

	publicIP, err := c.Geo.PublicIP(ctx)
	if err != nil {
		return nil, fmt.Errorf("public address: %w", err)
	}
	self, err := c.Geo.MyLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("own location: %w", err)
	}
	log.Info("run started", "hosts", len(opts.Hosts), "public_ip", publicIP, "city", self.City, "country", self.Country)

	hosts := append(append([]string(nil), opts.Hosts...), publicIP)
	sum, err := c.Ping(ctx, self, hosts)
	if err != nil {
		return nil, err
	}
	if err := report.DistanceScatter(opts.Files.DistancePlot, sum.Distances, sum.AvgRTTs); err != nil {
		return nil, err
	}
	if err := report.WriteResults(opts.Files.Results, sum.Records); err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}
	log.Info("ping step done", "hosts", len(hosts), "measured", len(sum.Labels), "results", opts.Files.Results)

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	sampled, err := Sample(rng, hosts, opts.SampleSize)
	if err != nil {
		return nil, err
	}
	log.Info("sampled hosts", "hosts", sampled)

	traces, err := c.Breakdown(ctx, sampled)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(traces))
	hops := make([][]float64, len(traces))
	incs := make([][]float64, len(traces))
	for i, tr := range traces {
		names[i] = tr.Host
		hops[i] = tr.Hops
		incs[i] = tr.Increases
	}
	if err := report.LatencyBreakdown(opts.Files.BreakdownPlot, names, incs); err != nil {
		return nil, err
	}
	if err := report.HopVsRTT(opts.Files.HopPlot, names, hops); err != nil {
		return nil, err
	}
	log.Info("run finished")

	return &Outcome{PublicIP: publicIP, Ping: sum, Sampled: sampled, Traces: traces}, nil
}
