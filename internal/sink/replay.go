package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"rtt-collect/internal/measure"
)

// ReplayResults replays JSONL host results from r to w. A speed >0 spaces
// the results by their recorded timestamps divided by speed; a speed <= 0
// inserts no delay.
func ReplayResults(ctx context.Context, r io.Reader, w ResultWriter, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var res measure.HostResult
		if err := dec.Decode(&res); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if err := pace(ctx, prev, res.Timestamp, speed); err != nil {
			return n, err
		}
		if err := w.WriteResult(res); err != nil {
			return n, err
		}
		prev = res.Timestamp
		n++
	}
}

// ReplayTraces replays JSONL trace results from r to w, paced like
// ReplayResults.
func ReplayTraces(ctx context.Context, r io.Reader, w TraceWriter, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var tr measure.TraceResult
		if err := dec.Decode(&tr); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if err := pace(ctx, prev, tr.Timestamp, speed); err != nil {
			return n, err
		}
		if err := w.WriteTrace(tr); err != nil {
			return n, err
		}
		prev = tr.Timestamp
		n++
	}
}

func pace(ctx context.Context, prev, next time.Time, speed float64) error {
	if prev.IsZero() || speed <= 0 {
		return ctx.Err()
	}
	diff := time.Duration(float64(next.Sub(prev)) / speed)
	if diff <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(diff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ReplayLogFile replays a results log written by FileWriter, followed by its
// "<path>.traces" companion when present.
func ReplayLogFile(ctx context.Context, path string, w Writer, speed float64) (results, traces int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	if results, err = ReplayResults(ctx, f, w, speed); err != nil {
		return results, 0, err
	}

	tf, err := os.Open(path + ".traces")
	if errors.Is(err, fs.ErrNotExist) {
		return results, 0, nil
	}
	if err != nil {
		return results, 0, err
	}
	defer tf.Close()
	traces, err = ReplayTraces(ctx, tf, w, speed)
	return results, traces, err
}
