// Package influxdb records auth and space event telemetry in InfluxDB v2.
//
// Points are written through the client's non-blocking, batching write API.
// events.PointSink maps each domain event to a point in the auth_events or
// space_events measurement.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { logger.Warn("influx write", "error", err) })
package influxdb
