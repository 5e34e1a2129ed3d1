// Destinations for streamed measurement results
package sink

import "rtt-collect/internal/measure"

// ResultWriter receives one result per probed host.
type ResultWriter interface {
	WriteResult(r measure.HostResult) error
}

// TraceWriter receives one result per traced host.
type TraceWriter interface {
	WriteTrace(t measure.TraceResult) error
}

// Writer handles both result kinds.
type Writer interface {
	ResultWriter
	TraceWriter
}
