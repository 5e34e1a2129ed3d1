// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default file names written by a collection run.
const (
	DefaultInput         = "listed_iperf3_servers.json"
	DefaultResults       = "ping_result.json"
	DefaultDistancePlot  = "distance_vs_rtt.pdf"
	DefaultBreakdownPlot = "latency_breakdown.pdf"
	DefaultHopPlot       = "hop_vs_rtt.pdf"
	DefaultGeoEndpoint   = "http://ip-api.com/json/"
)

// Probe methods.
const (
	MethodExec = "exec"
	MethodICMP = "icmp"
)

// OutputConfig names the files produced by a run.
type OutputConfig struct {
	Dir           string `yaml:"dir"`
	Results       string `yaml:"results"`
	DistancePlot  string `yaml:"distance_plot"`
	BreakdownPlot string `yaml:"breakdown_plot"`
	HopPlot       string `yaml:"hop_plot"`
}

// PingConfig controls the echo prober.
type PingConfig struct {
	Count       int           `yaml:"count"`
	Method      string        `yaml:"method"`
	Command     string        `yaml:"command"`
	Locales     []string      `yaml:"locales"`
	Timeout     time.Duration `yaml:"timeout"`
	EchoTimeout time.Duration `yaml:"echo_timeout"`
	Privileged  bool          `yaml:"privileged"`
}

// TraceConfig controls the route tracer.
type TraceConfig struct {
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// GeoConfig controls the geolocation client.
type GeoConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SampleConfig controls the host sample used for the breakdown charts.
// A zero Seed draws a time-based seed.
type SampleConfig struct {
	Size int   `yaml:"size"`
	Seed int64 `yaml:"seed"`
}

// Config is the root configuration of a collection run.
type Config struct {
	Input     string       `yaml:"input"`
	Output    OutputConfig `yaml:"output"`
	Ping      PingConfig   `yaml:"ping"`
	Trace     TraceConfig  `yaml:"trace"`
	Geo       GeoConfig    `yaml:"geo"`
	Sample    SampleConfig `yaml:"sample"`
	DNSServer string       `yaml:"dns_server"`
	LogLevel  string       `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Input: DefaultInput,
		Output: OutputConfig{
			Dir:           ".",
			Results:       DefaultResults,
			DistancePlot:  DefaultDistancePlot,
			BreakdownPlot: DefaultBreakdownPlot,
			HopPlot:       DefaultHopPlot,
		},
		Ping: PingConfig{
			Count:       3,
			Method:      MethodExec,
			EchoTimeout: 2 * time.Second,
		},
		Geo: GeoConfig{
			Endpoint: DefaultGeoEndpoint,
			Timeout:  5 * time.Second,
		},
		Sample:   SampleConfig{Size: 5},
		LogLevel: "info",
	}
}

// Load reads a YAML config, validates it against the CUE schema and merges it
// over Default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Validate(path, data); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Path joins name onto the output directory.
func (c *Config) Path(name string) string {
	if c.Output.Dir == "" {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}
