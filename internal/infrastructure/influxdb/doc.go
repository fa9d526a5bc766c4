// Package influxdb wraps the InfluxDB v2 client for link-quality and
// message-rate telemetry. Writes are batched and non-blocking; telemetry
// must never stall the event path.
package influxdb
