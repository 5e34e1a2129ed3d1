package report

import (
	"bytes"
	"encoding/json"
	"os"

	"rtt-collect/internal/measure"
)

// Sentinel marks a failed measurement in the aggregate file. It is written
// as the string "None", never as JSON null.
const Sentinel = "None"

// Record is one entry of ping_result.json.
type Record struct {
	IP          string
	RTT         *measure.RTT
	Coordinates *measure.Coordinates
}

// FromResult builds the aggregate record for a host result. A failed result
// sentinels both fields.
func FromResult(r measure.HostResult) Record {
	if !r.OK {
		return Record{IP: r.Host}
	}
	return Record{IP: r.Host, RTT: r.RTT, Coordinates: r.Coordinates}
}

type sentinelRTT struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
}

// MarshalJSON encodes the record as {"ip", "rtt", "coordinates"} with
// "None" sentinels for missing halves.
func (r Record) MarshalJSON() ([]byte, error) {
	var rtt any = sentinelRTT{Min: Sentinel, Max: Sentinel, Avg: Sentinel}
	if r.RTT != nil {
		rtt = r.RTT
	}
	var coords any = Sentinel
	if r.Coordinates != nil {
		coords = [2]float64{r.Coordinates.Lat, r.Coordinates.Lon}
	}
	return marshalLiteral(struct {
		IP          string `json:"ip"`
		RTT         any    `json:"rtt"`
		Coordinates any    `json:"coordinates"`
	}{r.IP, rtt, coords})
}

// marshalLiteral is json.Marshal without HTML escaping. The outer encoder's
// SetEscapeHTML does not reach text returned from a MarshalJSON method.
func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeResults renders records as a 2-space indented JSON array. Non-ASCII
// and HTML characters are written literally.
func EncodeResults(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteResults writes records to path, replacing any existing file.
func WriteResults(path string, records []Record) error {
	data, err := EncodeResults(records)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
