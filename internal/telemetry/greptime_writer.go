package telemetry

import (
	"context"
	"fmt"
	"net"
	"strconv"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// greptimeTable is created by GreptimeDB on first write.
const greptimeTable = "vehicle_telemetry"

// GreptimeWriter persists telemetry records to GreptimeDB via the ingester
// client.
type GreptimeWriter struct {
	client *greptime.Client
}

// NewGreptimeWriter connects the ingester client to the given endpoint
// (host or host:port) and database.
func NewGreptimeWriter(endpoint, database string) (*GreptimeWriter, error) {
	host, port := splitEndpoint(endpoint)
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port > 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeWriter{client: client}, nil
}

// Write inserts a single telemetry record.
func (w *GreptimeWriter) Write(rec Record) error {
	return w.WriteBatch([]Record{rec})
}

// WriteBatch inserts multiple telemetry records in one request.
func (w *GreptimeWriter) WriteBatch(recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	tbl, err := newRecordTable()
	if err != nil {
		return err
	}
	for _, r := range recs {
		err := tbl.AddRow(
			r.VehicleID,
			r.SignalStrength, r.Pitch, r.Yaw, r.Roll, r.Speed, r.Altitude, r.Battery,
			r.Position, r.RequestedPosition, r.Status,
			r.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("greptime add row: %w", err)
		}
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	return nil
}

// Close shuts the underlying gRPC connection down.
func (w *GreptimeWriter) Close() error {
	return w.client.Close()
}

// newRecordTable declares the column schema. AddRow values must follow the
// declaration order: tag, fields, timestamp.
func newRecordTable() (*table.Table, error) {
	tbl, err := table.New(greptimeTable)
	if err != nil {
		return nil, fmt.Errorf("greptime table: %w", err)
	}
	if err := tbl.AddTagColumn("vehicle_id", types.STRING); err != nil {
		return nil, err
	}
	for _, col := range []string{"signal_strength", "pitch", "yaw", "roll", "speed", "altitude", "battery"} {
		if err := tbl.AddFieldColumn(col, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	for _, col := range []string{"position", "requested_position", "status"} {
		if err := tbl.AddFieldColumn(col, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

// splitEndpoint accepts "host" or "host:port"; port 0 means the client
// default.
func splitEndpoint(endpoint string) (string, int) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
