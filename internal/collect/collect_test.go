package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"rtt-collect/internal/geo"
	"rtt-collect/internal/measure"
	"rtt-collect/internal/probe"
	"rtt-collect/internal/sink"
	"rtt-collect/internal/trace"
)

type fakeProber struct {
	rtts  map[string]measure.RTT
	fatal error
	calls []string
}

func (f *fakeProber) Probe(ctx context.Context, host string) (*measure.RTT, error) {
	f.calls = append(f.calls, host)
	if f.fatal != nil {
		return nil, f.fatal
	}
	rtt, ok := f.rtts[host]
	if !ok {
		return nil, fmt.Errorf("%w: %s", probe.ErrProbeFailed, host)
	}
	return &rtt, nil
}

type fakeGeo struct {
	self      geo.Location
	locations map[string]geo.Location
	fatal     error
	calls     []string
}

func (f *fakeGeo) MyLocation(ctx context.Context) (*geo.Location, error) {
	loc := f.self
	return &loc, nil
}

func (f *fakeGeo) Locate(ctx context.Context, ip string) (*geo.Location, error) {
	f.calls = append(f.calls, ip)
	if f.fatal != nil {
		return nil, f.fatal
	}
	loc, ok := f.locations[ip]
	if !ok {
		return nil, fmt.Errorf("%w: %s", geo.ErrLookupFailed, ip)
	}
	return &loc, nil
}

func (f *fakeGeo) PublicIP(ctx context.Context) (string, error) {
	return f.self.Query, nil
}

type fakeTracer struct {
	outputs map[string]string
}

func (f *fakeTracer) Trace(ctx context.Context, host string) ([]float64, error) {
	return trace.ParseHops(f.outputs[host]), nil
}

type recordingWriter struct {
	results []measure.HostResult
	traces  []measure.TraceResult
	err     error
}

func (r *recordingWriter) WriteResult(h measure.HostResult) error {
	r.results = append(r.results, h)
	return r.err
}

func (r *recordingWriter) WriteTrace(t measure.TraceResult) error {
	r.traces = append(r.traces, t)
	return r.err
}

var (
	berlin  = geo.Location{Status: "success", Lat: 52.52, Lon: 13.405, City: "Berlin", Country: "Germany", Query: "203.0.113.5"}
	google  = geo.Location{Status: "success", Lat: 37.386, Lon: -122.0838, City: "Mountain View"}
	cloudfl = geo.Location{Status: "success", Lat: -33.8688, Lon: 151.2093, City: "Sydney"}
)

func newCollector(w *recordingWriter) (*Collector, *fakeProber, *fakeGeo) {
	p := &fakeProber{rtts: map[string]measure.RTT{
		"8.8.8.8":     {Min: 150, Max: 160, Avg: 155},
		"1.1.1.1":     {Min: 280, Max: 300, Avg: 290},
		"203.0.113.5": {Min: 0.1, Max: 0.2, Avg: 0.15},
	}}
	g := &fakeGeo{self: berlin, locations: map[string]geo.Location{
		"8.8.8.8":     google,
		"1.1.1.1":     cloudfl,
		"203.0.113.5": berlin,
	}}
	tr := &fakeTracer{outputs: map[string]string{
		"8.8.8.8":     "  1     1 ms     2 ms     3 ms  192.168.1.1\n  2     *        *        *     Request timed out.\n  3    10 ms    12 ms    14 ms  8.8.8.8\n",
		"1.1.1.1":     "  1     *        *        *     Request timed out.\n  2     *        *        *     Request timed out.\n",
		"203.0.113.5": "  1    <1 ms    <1 ms    <1 ms  203.0.113.5\n",
	}}
	var sw sink.Writer
	if w != nil {
		sw = w
	}
	c := New(p, tr, g, sw)
	c.Now = func() time.Time { return time.Unix(0, 0).UTC() }
	return c, p, g
}

func TestPingAccumulators(t *testing.T) {
	w := &recordingWriter{}
	c, p, g := newCollector(w)
	p.rtts["10.0.0.1"] = measure.RTT{Min: 1, Max: 1, Avg: 1}
	g.locations["198.51.100.7"] = cloudfl
	hosts := []string{"8.8.8.8", "10.0.0.1", "192.0.2.9", "198.51.100.7", "1.1.1.1"}

	sum, err := c.Ping(context.Background(), &berlin, hosts)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if len(sum.Records) != len(hosts) || len(w.results) != len(hosts) {
		t.Fatalf("expected a record per host, got %d records, %d streamed", len(sum.Records), len(w.results))
	}
	if !slices.Equal(sum.Labels, []string{"8.8.8.8", "1.1.1.1"}) {
		t.Fatalf("labels = %v", sum.Labels)
	}
	if len(sum.Distances) != 2 || len(sum.AvgRTTs) != 2 || sum.AvgRTTs[1] != 290 {
		t.Fatalf("unexpected accumulators %v %v", sum.Distances, sum.AvgRTTs)
	}
	if want := geo.Haversine(google.Lat, google.Lon, berlin.Lat, berlin.Lon); sum.Distances[0] != want {
		t.Fatalf("distance = %v, want %v", sum.Distances[0], want)
	}
	// lookup failure with a successful probe still sentinels both halves
	if r := sum.Records[1]; r.IP != "10.0.0.1" || r.RTT != nil || r.Coordinates != nil {
		t.Fatalf("expected sentinel record, got %+v", r)
	}
	if r := sum.Records[2]; r.RTT != nil || r.Coordinates != nil {
		t.Fatalf("expected sentinel record, got %+v", r)
	}
	// probe failure with a successful lookup stays out of the accumulators
	if r := sum.Records[3]; r.IP != "198.51.100.7" || r.RTT != nil || r.Coordinates != nil {
		t.Fatalf("expected sentinel record, got %+v", r)
	}
	if slices.Contains(sum.Labels, "198.51.100.7") || slices.Contains(sum.AvgRTTs, 0) {
		t.Fatalf("failed probe leaked into accumulators: %v %v", sum.Labels, sum.AvgRTTs)
	}
	if w.results[3].OK || w.results[3].Coordinates != nil {
		t.Fatalf("streamed result should be failed, got %+v", w.results[3])
	}
	// both halves are attempted for every host
	if !slices.Equal(p.calls, hosts) || !slices.Equal(g.calls, hosts) {
		t.Fatalf("probe calls %v, geo calls %v", p.calls, g.calls)
	}
	for _, r := range w.results {
		if r.RunID != c.RunID {
			t.Fatalf("result without run id: %+v", r)
		}
	}
}

func TestPingFatalErrors(t *testing.T) {
	boom := errors.New("exec: \"ping\": executable file not found")
	c, p, _ := newCollector(nil)
	p.fatal = boom
	if _, err := c.Ping(context.Background(), &berlin, []string{"8.8.8.8"}); !errors.Is(err, boom) {
		t.Fatalf("expected probe start failure, got %v", err)
	}

	c, _, g := newCollector(nil)
	g.fatal = errors.New("dial tcp: connection refused")
	if _, err := c.Ping(context.Background(), &berlin, []string{"8.8.8.8"}); err == nil || errors.Is(err, geo.ErrLookupFailed) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestPingCancelled(t *testing.T) {
	c, _, _ := newCollector(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Ping(ctx, &berlin, []string{"8.8.8.8"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSample(t *testing.T) {
	hosts := []string{"a", "b", "c", "d", "e", "f", "g"}
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		got, err := Sample(rng, hosts, 5)
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("expected 5 hosts, got %d", len(got))
		}
		seen := map[string]bool{}
		for _, h := range got {
			if seen[h] || !slices.Contains(hosts, h) {
				t.Fatalf("invalid sample %v", got)
			}
			seen[h] = true
		}
	}
	if _, err := Sample(rng, hosts[:4], 5); err == nil {
		t.Fatal("expected error for too few hosts")
	}
	if !slices.Equal(hosts, []string{"a", "b", "c", "d", "e", "f", "g"}) {
		t.Fatal("input slice was modified")
	}
}

func TestSampleDeterministic(t *testing.T) {
	hosts := []string{"a", "b", "c", "d", "e", "f", "g"}
	a, _ := Sample(rand.New(rand.NewPCG(7, 7)), hosts, 5)
	b, _ := Sample(rand.New(rand.NewPCG(7, 7)), hosts, 5)
	if !slices.Equal(a, b) {
		t.Fatalf("same seed gave %v and %v", a, b)
	}
}

func TestBreakdown(t *testing.T) {
	w := &recordingWriter{}
	c, _, _ := newCollector(w)
	traces, err := c.Breakdown(context.Background(), []string{"8.8.8.8", "1.1.1.1"})
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if len(traces) != 2 || len(w.traces) != 2 {
		t.Fatalf("expected 2 traces, got %d (%d streamed)", len(traces), len(w.traces))
	}
	if !slices.Equal(traces[0].Hops, []float64{2, 12}) || !slices.Equal(traces[0].Increases, []float64{2, 10}) {
		t.Fatalf("unexpected trace %+v", traces[0])
	}
	if len(traces[1].Hops) != 0 || len(traces[1].Increases) != 0 || traces[1].TotalRTT() != 0 {
		t.Fatalf("all-timeout trace should be empty, got %+v", traces[1])
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	w := &recordingWriter{}
	c, _, _ := newCollector(w)
	files := Files{
		Results:       filepath.Join(dir, "ping_result.json"),
		DistancePlot:  filepath.Join(dir, "distance_vs_rtt.pdf"),
		BreakdownPlot: filepath.Join(dir, "latency_breakdown.pdf"),
		HopPlot:       filepath.Join(dir, "hop_vs_rtt.pdf"),
	}
	out, err := c.Run(context.Background(), Options{
		Hosts:      []string{"8.8.8.8", "1.1.1.1"},
		SampleSize: 3,
		Rand:       rand.New(rand.NewPCG(1, 1)),
		Files:      files,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.PublicIP != berlin.Query {
		t.Fatalf("public ip = %q", out.PublicIP)
	}
	if len(out.Sampled) != 3 || len(out.Traces) != 3 {
		t.Fatalf("expected 3 sampled traces, got %v", out.Sampled)
	}

	data, err := os.ReadFile(files.Results)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 2 hosts + self, got %d records", len(records))
	}
	if records[2]["ip"] != berlin.Query {
		t.Fatalf("last record should be the public address, got %v", records[2]["ip"])
	}
	if len(out.Ping.Distances) > 3 {
		t.Fatalf("too many scatter points: %d", len(out.Ping.Distances))
	}
	for _, p := range []string{files.DistancePlot, files.BreakdownPlot, files.HopPlot} {
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.HasPrefix(b, []byte("%PDF")) {
			t.Fatalf("%s is not a PDF", p)
		}
	}
}

func TestRunTooFewHostsForSample(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newCollector(nil)
	_, err := c.Run(context.Background(), Options{
		Hosts:      []string{"8.8.8.8"},
		SampleSize: 5,
		Files: Files{
			Results:       filepath.Join(dir, "r.json"),
			DistancePlot:  filepath.Join(dir, "d.pdf"),
			BreakdownPlot: filepath.Join(dir, "b.pdf"),
			HopPlot:       filepath.Join(dir, "h.pdf"),
		},
	})
	if err == nil {
		t.Fatal("expected sampling error")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "r.json")); statErr != nil {
		t.Fatalf("results should be written before sampling: %v", statErr)
	}
}

func TestRunContinuesAfterWriterError(t *testing.T) {
	dir := t.TempDir()
	w := &recordingWriter{err: errors.New("greptimedb: unavailable")}
	c, _, _ := newCollector(w)
	files := Files{
		Results:       filepath.Join(dir, "ping_result.json"),
		DistancePlot:  filepath.Join(dir, "distance_vs_rtt.pdf"),
		BreakdownPlot: filepath.Join(dir, "latency_breakdown.pdf"),
		HopPlot:       filepath.Join(dir, "hop_vs_rtt.pdf"),
	}
	out, err := c.Run(context.Background(), Options{
		Hosts:      []string{"8.8.8.8", "1.1.1.1"},
		SampleSize: 2,
		Rand:       rand.New(rand.NewPCG(3, 3)),
		Files:      files,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(w.results) != 3 || len(w.traces) != 2 || len(out.Traces) != 2 {
		t.Fatalf("expected every host attempted, got %d results, %d traces", len(w.results), len(w.traces))
	}
	for _, p := range []string{files.Results, files.DistancePlot, files.BreakdownPlot, files.HopPlot} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing output %s: %v", p, err)
		}
	}
}
