package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint records a point stamped with the current time.
//
// This is how domain events reach InfluxDB. The write is non-blocking;
// points are batched and sent asynchronously. Writes after Close are dropped.
//
// Parameters:
//   - measurement: The measurement name (e.g., "space_events")
//   - tags: Indexed string dimensions (e.g., event type)
//   - fields: The recorded values
//
// Example:
//
//	client.WritePoint("space_events",
//	    map[string]string{"type": "space.created"},
//	    map[string]interface{}{"count": 1})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime records a point at an explicit timestamp.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Indexed string dimensions
//   - fields: The recorded values
//   - timestamp: When the event happened
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
