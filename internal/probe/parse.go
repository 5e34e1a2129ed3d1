package probe

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"rtt-collect/internal/measure"
)

// Parser extracts an RTT summary from the text printed by a ping utility.
type Parser interface {
	Parse(output string) (*measure.RTT, bool)
}

// SummaryParser reads the min/max/avg lines a ping utility prints after the
// last reply. Each pattern captures its value in group 1.
type SummaryParser struct {
	Locale string
	Min    *regexp.Regexp
	Max    *regexp.Regexp
	Avg    *regexp.Regexp
}

// Parse implements Parser. All three fields must be present.
func (p SummaryParser) Parse(output string) (*measure.RTT, bool) {
	lo, ok1 := firstFloat(p.Min, output)
	hi, ok2 := firstFloat(p.Max, output)
	avg, ok3 := firstFloat(p.Avg, output)
	if !ok1 || !ok2 || !ok3 {
		return nil, false
	}
	return &measure.RTT{Min: lo, Max: hi, Avg: avg}, true
}

func firstFloat(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Summary parsers by locale tag.
var summaryParsers = []SummaryParser{
	{
		Locale: "zh-CN",
		Min:    regexp.MustCompile(`最短 = (\d+)ms`),
		Max:    regexp.MustCompile(`最长 = (\d+)ms`),
		Avg:    regexp.MustCompile(`平均 = (\d+)ms`),
	},
	{
		Locale: "en",
		Min:    regexp.MustCompile(`Minimum = (\d+)ms`),
		Max:    regexp.MustCompile(`Maximum = (\d+)ms`),
		Avg:    regexp.MustCompile(`Average = (\d+)ms`),
	},
	{
		Locale: "de",
		Min:    regexp.MustCompile(`Minimum = (\d+)ms`),
		Max:    regexp.MustCompile(`Maximum = (\d+)ms`),
		Avg:    regexp.MustCompile(`Mittelwert = (\d+)ms`),
	},
	{
		// iputils "rtt min/avg/max/mdev", BSD and macOS "round-trip min/avg/max/stddev"
		Locale: "unix",
		Min:    regexp.MustCompile(`min/avg/max/\w+ = ([\d.]+)/`),
		Max:    regexp.MustCompile(`min/avg/max/\w+ = [\d.]+/[\d.]+/([\d.]+)`),
		Avg:    regexp.MustCompile(`min/avg/max/\w+ = [\d.]+/([\d.]+)/`),
	},
}

// Locales lists the summary formats understood by the prober.
func Locales() []string {
	out := make([]string, 0, len(summaryParsers))
	for _, p := range summaryParsers {
		out = append(out, p.Locale)
	}
	return out
}

// SampleParser aggregates the per-reply "time=" values when no summary line
// is recognised.
type SampleParser struct{}

var replyTime = regexp.MustCompile(`(?:time|时间|Zeit)[=<]\s*([\d.]+)\s*ms`)

// Parse implements Parser.
func (SampleParser) Parse(output string) (*measure.RTT, bool) {
	var samples []float64
	for _, m := range replyTime.FindAllStringSubmatch(output, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		samples = append(samples, v)
	}
	if len(samples) == 0 {
		return nil, false
	}
	return summarize(samples), true
}

// Parsers builds the parser chain for the given locale tags, in order,
// followed by the raw sample fallback. No tags selects every locale.
func Parsers(locales []string) ([]Parser, error) {
	var chain []Parser
	if len(locales) == 0 {
		for _, p := range summaryParsers {
			chain = append(chain, p)
		}
		return append(chain, SampleParser{}), nil
	}
	for _, loc := range locales {
		found := false
		for _, p := range summaryParsers {
			if p.Locale == loc {
				chain = append(chain, p)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown ping locale %q (supported: %s)", loc, strings.Join(Locales(), ", "))
		}
	}
	return append(chain, SampleParser{}), nil
}

// Parse runs output through the chain and returns the first summary found.
func Parse(output string, chain []Parser) (*measure.RTT, bool) {
	for _, p := range chain {
		if rtt, ok := p.Parse(output); ok {
			return rtt, true
		}
	}
	return nil, false
}

// summarize reduces RTT samples (ms) to min/max/avg, rounded to two decimals.
func summarize(samples []float64) *measure.RTT {
	rtt := &measure.RTT{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, s := range samples {
		rtt.Min = math.Min(rtt.Min, s)
		rtt.Max = math.Max(rtt.Max, s)
		sum += s
	}
	rtt.Min = round2(rtt.Min)
	rtt.Max = round2(rtt.Max)
	rtt.Avg = round2(sum / float64(len(samples)))
	return rtt
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
