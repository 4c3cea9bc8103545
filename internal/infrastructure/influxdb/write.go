package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementLockState = "lock_state"
	MeasurementAction    = "lock_action"
)

// WriteLockState records the current locked flag and number of stored users.
func (c *Client) WriteLockState(locked bool, users int) {
	c.write(MeasurementLockState, nil, map[string]any{
		"locked": locked,
		"users":  users,
	})
}

// WriteAction records one finished action. duration is the time from
// request to completion; PINs and other input never leave the process.
func (c *Client) WriteAction(name, status string, duration time.Duration) {
	c.write(MeasurementAction,
		map[string]string{
			"action": name,
			"status": status,
		},
		map[string]any{
			"duration_ms": float64(duration) / float64(time.Millisecond),
			"count":       1,
		},
	)
}

// WritePoint writes an arbitrary measurement with the thing tag added.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.write(measurement, tags, fields)
}

func (c *Client) write(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}

	allTags := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		allTags[k] = v
	}
	allTags["thing"] = c.thing

	c.writer.WritePoint(write.NewPoint(measurement, allTags, fields, c.now()))
}
