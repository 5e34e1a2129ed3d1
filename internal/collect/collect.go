// Orchestration of a collection run: probe, locate, trace, report
package collect

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"rtt-collect/internal/geo"
	"rtt-collect/internal/logging"
	"rtt-collect/internal/measure"
	"rtt-collect/internal/probe"
	"rtt-collect/internal/report"
	"rtt-collect/internal/sink"
	"rtt-collect/internal/trace"
)

// Collector runs the measurement steps against its capabilities. Writer may
// be nil.
type Collector struct {
	Prober probe.Prober
	Tracer trace.Tracer
	Geo    geo.Geolocator
	Writer sink.Writer
	RunID  string
	Now    func() time.Time
}

// New creates a Collector with a fresh run ID.
func New(p probe.Prober, t trace.Tracer, g geo.Geolocator, w sink.Writer) *Collector {
	return &Collector{
		Prober: p,
		Tracer: t,
		Geo:    g,
		Writer: w,
		RunID:  uuid.NewString(),
		Now:    time.Now,
	}
}

func (c *Collector) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// PingSummary holds the outcome of the ping step. Distances, AvgRTTs and
// Labels are parallel and only cover hosts where both probe and lookup
// succeeded; Records covers every host in input order.
type PingSummary struct {
	Distances []float64
	AvgRTTs   []float64
	Labels    []string
	Records   []report.Record
	Results   []measure.HostResult
}

// Ping probes and locates every host. A host whose probe or lookup fails is
// kept as a sentinel record and skipped from the accumulators. Any error
// other than a probe or lookup failure aborts the step. Writer errors are
// logged and do not stop the run.
func (c *Collector) Ping(ctx context.Context, self *geo.Location, hosts []string) (*PingSummary, error) {
	log := logging.FromContext(ctx)
	sum := &PingSummary{}
	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := c.measure(ctx, self, host)
		if err != nil {
			return nil, err
		}
		sum.Results = append(sum.Results, res)
		sum.Records = append(sum.Records, report.FromResult(res))
		if res.OK {
			sum.Distances = append(sum.Distances, res.DistanceKM)
			sum.AvgRTTs = append(sum.AvgRTTs, res.RTT.Avg)
			sum.Labels = append(sum.Labels, host)
			log.Info("host measured", "host", host, "avg_ms", res.RTT.Avg, "distance_km", res.DistanceKM)
		}
		if c.Writer != nil {
			if err := c.Writer.WriteResult(res); err != nil {
				log.Error("write failed", "host", host, "error", err)
			}
		}
	}
	return sum, nil
}

// measure probes and locates one host. Both halves always run; the result is
// OK only when both succeed.
func (c *Collector) measure(ctx context.Context, self *geo.Location, host string) (measure.HostResult, error) {
	log := logging.FromContext(ctx)
	res := measure.HostResult{RunID: c.RunID, Host: host, Timestamp: c.now()}

	rtt, probeErr := c.Prober.Probe(ctx, host)
	if probeErr != nil && !errors.Is(probeErr, probe.ErrProbeFailed) {
		return res, fmt.Errorf("probe %s: %w", host, probeErr)
	}
	loc, geoErr := c.Geo.Locate(ctx, host)
	if geoErr != nil && !errors.Is(geoErr, geo.ErrLookupFailed) {
		return res, fmt.Errorf("locate %s: %w", host, geoErr)
	}

	switch {
	case probeErr != nil && geoErr != nil:
		log.Warn("host failed", "host", host, "failed", "probe,geolocation", "probe_error", probeErr, "geo_error", geoErr)
		return res, nil
	case probeErr != nil:
		log.Warn("host failed", "host", host, "failed", "probe", "error", probeErr)
		return res, nil
	case geoErr != nil:
		log.Warn("host failed", "host", host, "failed", "geolocation", "error", geoErr)
		return res, nil
	}

	coords := loc.Coordinates()
	res.OK = true
	res.RTT = rtt
	res.Coordinates = &coords
	res.City = loc.City
	res.Country = loc.Country
	res.DistanceKM = geo.Haversine(loc.Lat, loc.Lon, self.Lat, self.Lon)
	return res, nil
}

// Sample draws n hosts uniformly at random without replacement. It fails
// when fewer than n hosts are given.
func Sample(rng *rand.Rand, hosts []string, n int) ([]string, error) {
	if n < 0 || len(hosts) < n {
		return nil, fmt.Errorf("sample %d hosts: only %d available", n, len(hosts))
	}
	pool := append([]string(nil), hosts...)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n], nil
}

// Breakdown traces every host and computes its hop increases. A trace with
// no timing lines yields empty hops, not an error.
func (c *Collector) Breakdown(ctx context.Context, hosts []string) ([]measure.TraceResult, error) {
	log := logging.FromContext(ctx)
	results := make([]measure.TraceResult, 0, len(hosts))
	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hops, err := c.Tracer.Trace(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("trace %s: %w", host, err)
		}
		tr := measure.TraceResult{
			RunID:     c.RunID,
			Host:      host,
			Hops:      hops,
			Increases: trace.Increases(hops),
			Timestamp: c.now(),
		}
		log.Info("host traced", "host", host, "hops", len(hops), "total_ms", tr.TotalRTT())
		if c.Writer != nil {
			if err := c.Writer.WriteTrace(tr); err != nil {
				log.Error("write failed", "host", host, "error", err)
			}
		}
		results = append(results, tr)
	}
	return results, nil
}
