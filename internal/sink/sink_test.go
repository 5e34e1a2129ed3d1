package sink

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rtt-collect/internal/measure"
)

var ts = time.Unix(0, 0).UTC()

func okResult(host string) measure.HostResult {
	return measure.HostResult{
		RunID:       "run-1",
		Host:        host,
		RTT:         &measure.RTT{Min: 10, Max: 14, Avg: 12},
		Coordinates: &measure.Coordinates{Lat: 52.52, Lon: 13.405},
		DistanceKM:  512.3,
		City:        "Berlin",
		Country:     "Germany",
		OK:          true,
		Timestamp:   ts,
	}
}

func failedResult(host string) measure.HostResult {
	return measure.HostResult{RunID: "run-1", Host: host, Timestamp: ts}
}

func sampleTrace() measure.TraceResult {
	return measure.TraceResult{RunID: "run-1", Host: "1.1.1.1", Hops: []float64{1, 3, 7}, Increases: []float64{1, 2, 4}, Timestamp: ts}
}

type recordingWriter struct {
	results []measure.HostResult
	traces  []measure.TraceResult
	closed  int
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

func (r *recordingWriter) Close() error {
	r.closed++
	return nil
}

type resultOnly struct{ n int }

func (r *resultOnly) WriteResult(measure.HostResult) error { r.n++; return nil }

func TestMultiWriterFanOut(t *testing.T) {
	a, b := &recordingWriter{}, &recordingWriter{}
	ro := &resultOnly{}
	mw := NewMultiWriterFrom(a, b, ro)
	if err := mw.WriteResult(okResult("8.8.8.8")); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if err := mw.WriteTrace(sampleTrace()); err != nil {
		t.Fatalf("WriteTrace: %v", err)
	}
	if len(a.results) != 1 || len(b.results) != 1 || ro.n != 1 {
		t.Fatalf("results not fanned out: %d %d %d", len(a.results), len(b.results), ro.n)
	}
	if len(a.traces) != 1 || len(b.traces) != 1 {
		t.Fatalf("traces not fanned out")
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.closed != 1 || b.closed != 1 {
		t.Fatalf("writers closed %d/%d times, want once", a.closed, b.closed)
	}
}

func TestMultiWriterStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingWriter{err: boom}
	b := &recordingWriter{}
	mw := newMultiWriter([]ResultWriter{a, b}, nil)
	if err := mw.WriteResult(okResult("x")); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(b.results) != 0 {
		t.Fatalf("second writer should not be reached")
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	resPath := filepath.Join(dir, "results.jsonl")
	trPath := filepath.Join(dir, "results.jsonl.traces")
	fw, err := NewFileWriter(resPath, trPath)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteResult(okResult("8.8.8.8")); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if err := fw.WriteResult(failedResult("10.0.0.1")); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if err := fw.WriteTrace(sampleTrace()); err != nil {
		t.Fatalf("WriteTrace: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, resPath)
	if len(lines) != 2 {
		t.Fatalf("expected 2 result lines, got %d", len(lines))
	}
	var got measure.HostResult
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.Host != "8.8.8.8" || got.RTT == nil || got.RTT.Avg != 12 || !got.Timestamp.Equal(ts) {
		t.Fatalf("unexpected result %+v", got)
	}
	var failed measure.HostResult
	if err := json.Unmarshal([]byte(lines[1]), &failed); err != nil {
		t.Fatalf("decode failed result: %v", err)
	}
	if failed.OK || failed.RTT != nil {
		t.Fatalf("unexpected failed result %+v", failed)
	}

	traces := readLines(t, trPath)
	if len(traces) != 1 {
		t.Fatalf("expected 1 trace line, got %d", len(traces))
	}
	var tr measure.TraceResult
	if err := json.Unmarshal([]byte(traces[0]), &tr); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	if len(tr.Hops) != 3 || tr.Increases[2] != 4 {
		t.Fatalf("unexpected trace %+v", tr)
	}
}

func TestFileWriterWithoutTraces(t *testing.T) {
	fw, err := NewFileWriter(filepath.Join(t.TempDir(), "r.jsonl"), "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer fw.Close()
	if err := fw.WriteTrace(sampleTrace()); err != nil {
		t.Fatalf("WriteTrace without trace file: %v", err)
	}
}

func TestStdoutWriterJSONFallback(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newStdoutWriter(buf, false)
	if err := w.WriteResult(okResult("8.8.8.8")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.WriteTrace(sampleTrace()); err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	for _, l := range lines {
		if !json.Valid([]byte(l)) {
			t.Fatalf("expected JSON output, got %q", l)
		}
	}
}

func TestStdoutWriterColorized(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newStdoutWriter(buf, true)
	if err := w.WriteResult(okResult("8.8.8.8")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.WriteResult(failedResult("10.0.0.1")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.WriteTrace(sampleTrace()); err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"8.8.8.8", "10.00/12.00/14.00ms", "512.3km", "Berlin, Germany", "10.0.0.1", "failed", "hops=3", "7.00ms", "1.00 2.00 4.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.HasPrefix(out, "{") {
		t.Fatalf("expected human-readable output, got JSON")
	}
}

func TestPlaceName(t *testing.T) {
	cases := map[[2]string]string{
		{"Berlin", "Germany"}: "Berlin, Germany",
		{"Berlin", ""}:        "Berlin",
		{"", "Germany"}:       "Germany",
		{"", ""}:              "",
	}
	for in, want := range cases {
		if got := placeName(in[0], in[1]); got != want {
			t.Errorf("placeName(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}
