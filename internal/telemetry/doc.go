// Package telemetry records link quality, message rates and network
// gauges from the controller event stream into InfluxDB. Recording is
// best-effort and never blocks the event path.
package telemetry
