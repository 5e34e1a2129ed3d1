package sink

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"rtt-collect/internal/measure"
)

// DefaultGreptimePort is the GreptimeDB gRPC port used when the endpoint
// carries none.
const DefaultGreptimePort = 4001

// greptimeClient is the subset of the ingester client the writer uses.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes host results and per-hop latency to GreptimeDB.
type GreptimeDBWriter struct {
	client    greptimeClient
	resultTbl string
	hopTbl    string
	log       *slog.Logger
	ctx       context.Context
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port") and
// writes to database. Tables are created by the server on first write.
func NewGreptimeDBWriter(ctx context.Context, endpoint, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port)
	if database != "" {
		cfg = cfg.WithDatabase(database)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptimedb client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{
		client:    client,
		resultTbl: measure.ResultTableName,
		hopTbl:    measure.HopTableName,
		log:       log,
		ctx:       ctx,
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, DefaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptimedb endpoint %q: bad port: %w", endpoint, err)
	}
	return host, port, nil
}

func (w *GreptimeDBWriter) context() context.Context {
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *GreptimeDBWriter) logger() *slog.Logger {
	if w.log == nil {
		return slog.Default()
	}
	return w.log
}

// resultTable builds the rtt_results schema.
func resultTable(name string) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, c := range []string{"run_id", "host"} {
		if err := tbl.AddTagColumn(c, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddFieldColumn("ok", types.BOOLEAN); err != nil {
		return nil, err
	}
	for _, c := range []string{"min_ms", "max_ms", "avg_ms", "lat", "lon", "distance_km"} {
		if err := tbl.AddFieldColumn(c, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	for _, c := range []string{"city", "country"} {
		if err := tbl.AddFieldColumn(c, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

// hopTable builds the hop_latency schema.
func hopTable(name string) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, c := range []string{"run_id", "host"} {
		if err := tbl.AddTagColumn(c, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTagColumn("hop", types.INT64); err != nil {
		return nil, err
	}
	for _, c := range []string{"rtt_ms", "increase_ms"} {
		if err := tbl.AddFieldColumn(c, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

// WriteResult inserts a single host result. Failed hosts are written with
// ok=false and zero measurements.
func (w *GreptimeDBWriter) WriteResult(r measure.HostResult) error {
	tbl, err := resultTable(w.resultTbl)
	if err != nil {
		return err
	}
	var rtt measure.RTT
	var coords measure.Coordinates
	if r.RTT != nil {
		rtt = *r.RTT
	}
	if r.Coordinates != nil {
		coords = *r.Coordinates
	}
	if err := tbl.AddRow(r.RunID, r.Host, r.OK,
		rtt.Min, rtt.Max, rtt.Avg, coords.Lat, coords.Lon, r.DistanceKM,
		r.City, r.Country, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}

// WriteTrace inserts one row per traced hop. An empty trace writes nothing.
func (w *GreptimeDBWriter) WriteTrace(t measure.TraceResult) error {
	if len(t.Hops) == 0 {
		return nil
	}
	tbl, err := hopTable(w.hopTbl)
	if err != nil {
		return err
	}
	for i, rtt := range t.Hops {
		var inc float64
		if i < len(t.Increases) {
			inc = t.Increases[i]
		}
		if err := tbl.AddRow(t.RunID, t.Host, int64(i+1), rtt, inc, t.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(t.Hops))
}

func (w *GreptimeDBWriter) write(tbl *table.Table, rows int) error {
	if _, err := w.client.Write(w.context(), tbl); err != nil {
		w.logger().Error("greptimedb write failed", "error", err)
		return err
	}
	w.logger().Debug("greptimedb rows written", "rows", rows)
	return nil
}
