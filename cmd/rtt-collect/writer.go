package main

import (
	"context"
	"os"

	"golang.org/x/term"

	"rtt-collect/internal/logging"
	"rtt-collect/internal/sink"
)

// writerOptions selects the sinks a command streams results to.
type writerOptions struct {
	printOnly bool
	logFile   string
	tui       bool
	runID     string
}

// newWriters sets up result writers based on flags and env vars. It returns
// the writer and a cleanup function closing any resources.
func newWriters(ctx context.Context, opts writerOptions) (sink.Writer, func(), error) {
	base, err := baseWriter(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	writers := []any{base}
	if opts.logFile != "" {
		fw, err := sink.NewFileWriter(opts.logFile, opts.logFile+".traces")
		if err != nil {
			closeWriter(base)
			return nil, nil, err
		}
		writers = append(writers, fw)
	}
	if len(writers) == 1 {
		return base, func() { closeWriter(base) }, nil
	}
	mw := sink.NewMultiWriterFrom(writers...)
	return mw, func() { _ = mw.Close() }, nil
}

// baseWriter chooses the primary writer: the TUI when requested on a terminal, STDOUT in
// print-only mode or without GREPTIMEDB_ENDPOINT, GreptimeDB otherwise.
func baseWriter(ctx context.Context, opts writerOptions) (sink.Writer, error) {
	log := logging.FromContext(ctx)
	if opts.tui {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return sink.NewTUIWriter(opts.runID), nil
		}
		log.Warn("STDOUT is not a terminal, ignoring --tui")
	}
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if opts.printOnly || endpoint == "" {
		log.Debug("print-only mode: results go to STDOUT")
		return sink.NewStdoutWriter(), nil
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	log.Info("writing results to GreptimeDB", "endpoint", endpoint, "database", database)
	return sink.NewGreptimeDBWriter(ctx, endpoint, database, log)
}

func closeWriter(w sink.Writer) {
	if c, ok := w.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
