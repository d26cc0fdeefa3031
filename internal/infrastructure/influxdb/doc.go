// Package influxdb records dialogue telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library and writes two
// measurements:
//   - dialogue_command: one point per device command, tagged by device,
//     domain and command kind, with ok/error/value fields
//   - dialogue_turn: one point per dialogue turn, tagged by form and status,
//     with the number of matched devices
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteTurn(influxdb.TurnPoint{Form: "adjust", Status: "resolved", Devices: 2})
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched according to batch_size and flush_interval; asynchronous write
// errors are delivered to the SetOnError callback.
package influxdb
