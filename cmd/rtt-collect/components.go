package main

import (
	"fmt"

	"rtt-collect/internal/config"
	"rtt-collect/internal/geo"
	"rtt-collect/internal/probe"
	"rtt-collect/internal/resolve"
	"rtt-collect/internal/trace"
)

// newProber builds the echo prober selected by cfg.Ping.Method.
func newProber(c *config.Config) (probe.Prober, error) {
	switch c.Ping.Method {
	case config.MethodICMP:
		return probe.NewICMPProber(c.Ping.Count, c.Ping.EchoTimeout, c.Ping.Privileged, resolve.New(c.DNSServer)), nil
	case config.MethodExec, "":
		parsers, err := probe.Parsers(c.Ping.Locales)
		if err != nil {
			return nil, err
		}
		return probe.NewExecProber(c.Ping.Command, c.Ping.Count, c.Ping.Timeout, parsers), nil
	default:
		return nil, fmt.Errorf("unknown ping method %q", c.Ping.Method)
	}
}

func newTracer(c *config.Config) trace.Tracer {
	return trace.NewExecTracer(c.Trace.Command, c.Trace.Timeout)
}

func newGeolocator(c *config.Config) geo.Geolocator {
	return geo.NewClient(c.Geo.Endpoint, c.Geo.Timeout)
}
