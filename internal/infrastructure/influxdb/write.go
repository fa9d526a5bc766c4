package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteLinkQuality records the link quality of one received frame.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Dropped silently when disconnected, telemetry is best-effort.
func (c *Client) WriteLinkQuality(ieeeAddress string, linkQuality uint8) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"link_quality",
		map[string]string{
			"ieee_address": ieeeAddress,
		},
		map[string]interface{}{
			"lqi": int64(linkQuality),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteMessageCount records one received application message for rate
// tracking, tagged by device and message kind.
func (c *Client) WriteMessageCount(ieeeAddress string, kind string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"messages",
		map[string]string{
			"ieee_address": ieeeAddress,
			"kind":         kind,
		},
		map[string]interface{}{
			"count": int64(1),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteNetworkStats records network-level gauges (device counts, permit
// join state) for dashboarding.
func (c *Client) WriteNetworkStats(deviceCount int, permitJoin bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"network",
		map[string]string{},
		map[string]interface{}{
			"devices":     int64(deviceCount),
			"permit_join": permitJoin,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and
// fields. Tags should stay low-cardinality.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
