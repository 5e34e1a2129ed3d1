// Measurement records produced by a collection run
package measure

import (
	"os"
	"time"
)

// RTT holds the round-trip summary of one echo probe, in milliseconds.
type RTT struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Coordinates is an approximate geographic position in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HostResult is the outcome of probing and locating a single target host.
// RTT and Coordinates are both nil when OK is false.
type HostResult struct {
	RunID       string       `json:"run_id"`      // TAG
	Host        string       `json:"host"`        // TAG
	RTT         *RTT         `json:"rtt"`         // FIELD
	Coordinates *Coordinates `json:"coordinates"` // FIELD
	DistanceKM  float64      `json:"distance_km"` // FIELD
	City        string       `json:"city,omitempty"`
	Country     string       `json:"country,omitempty"`
	OK          bool         `json:"ok"`
	Timestamp   time.Time    `json:"ts"` // TIME INDEX
}

// TraceResult holds the per-hop latency of one traced host.
type TraceResult struct {
	RunID     string    `json:"run_id"`
	Host      string    `json:"host"`
	Hops      []float64 `json:"hops"`
	Increases []float64 `json:"increases"`
	Timestamp time.Time `json:"ts"`
}

// TotalRTT returns the cumulative RTT at the last traced hop, or 0 for an
// empty trace.
func (t TraceResult) TotalRTT() float64 {
	if len(t.Hops) == 0 {
		return 0
	}
	return t.Hops[len(t.Hops)-1]
}

// ResultTableName holds the GreptimeDB table for host results.
// It defaults to "rtt_results" and can be overridden via GREPTIMEDB_TABLE.
var ResultTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "rtt_results"
}()

// HopTableName holds the GreptimeDB table for per-hop latency rows.
// It defaults to "hop_latency" and can be overridden via HOP_LATENCY_TABLE.
var HopTableName = func() string {
	if env := os.Getenv("HOP_LATENCY_TABLE"); env != "" {
		return env
	}
	return "hop_latency"
}()
