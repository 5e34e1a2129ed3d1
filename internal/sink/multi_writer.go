package sink

import (
	"errors"
	"io"

	"rtt-collect/internal/measure"
)

// MultiWriter fans out results and traces to multiple writers.
type MultiWriter struct {
	results []ResultWriter
	traces  []TraceWriter
}

func newMultiWriter(rws []ResultWriter, tws []TraceWriter) *MultiWriter {
	return &MultiWriter{results: rws, traces: tws}
}

// NewMultiWriterFrom registers each writer for every kind it handles.
func NewMultiWriterFrom(writers ...any) *MultiWriter {
	var rws []ResultWriter
	var tws []TraceWriter
	for _, w := range writers {
		if rw, ok := w.(ResultWriter); ok {
			rws = append(rws, rw)
		}
		if tw, ok := w.(TraceWriter); ok {
			tws = append(tws, tw)
		}
	}
	return newMultiWriter(rws, tws)
}

// WriteResult sends a host result to all result writers.
func (mw *MultiWriter) WriteResult(r measure.HostResult) error {
	for _, w := range mw.results {
		if err := w.WriteResult(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteTrace sends a trace result to all trace writers.
func (mw *MultiWriter) WriteTrace(t measure.TraceResult) error {
	for _, w := range mw.traces {
		if err := w.WriteTrace(t); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every distinct writer implementing io.Closer and returns the
// joined errors.
func (mw *MultiWriter) Close() error {
	seen := make(map[any]bool)
	var errs []error
	closeOne := func(w any) {
		c, ok := w.(io.Closer)
		if !ok || seen[w] {
			return
		}
		seen[w] = true
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, w := range mw.results {
		closeOne(w)
	}
	for _, w := range mw.traces {
		closeOne(w)
	}
	return errors.Join(errs...)
}
