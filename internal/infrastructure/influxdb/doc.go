// Package influxdb writes SimLock telemetry to InfluxDB v2.
//
// Two measurements are produced, both tagged with the thing id:
//
//	lock_state   fields: locked (bool), users (int)
//	lock_action  tags: action, status   fields: duration_ms, count
//
// Action inputs are never written, so PINs stay in process memory.
// Telemetry is optional; when disabled, Connect returns ErrDisabled and the
// caller simply skips wiring it.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Thing.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteLockState(device.Locked(), len(device.Users()))
package influxdb
