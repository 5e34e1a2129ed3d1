package targets

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Server is one entry of the iperf3 server list. Only the host column is used.
type Server struct {
	Host string `json:"IP/HOST"`
}

// Load reads a JSON array of server records and returns their hosts in file
// order.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open target list: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a server list from r.
func Read(r io.Reader) ([]string, error) {
	var servers []Server
	if err := json.NewDecoder(r).Decode(&servers); err != nil {
		return nil, fmt.Errorf("decode target list: %w", err)
	}
	hosts := make([]string, 0, len(servers))
	for _, s := range servers {
		hosts = append(hosts, s.Host)
	}
	return hosts, nil
}
