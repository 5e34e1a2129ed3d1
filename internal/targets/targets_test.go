package targets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listed_iperf3_servers.json")
	body := `[
  {"IP/HOST": "8.8.8.8", "PORT": "5201", "SITE": "Mountain View"},
  {"IP/HOST": "speedtest.例え.jp", "GBPS": "10"}
]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	hosts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(hosts) != 2 || hosts[0] != "8.8.8.8" || hosts[1] != "speedtest.例え.jp" {
		t.Fatalf("unexpected hosts: %v", hosts)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestReadMalformed(t *testing.T) {
	if _, err := Read(strings.NewReader(`{"IP/HOST": "1.1.1.1"`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
