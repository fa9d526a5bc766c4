// Package mqtt wraps the paho MQTT client: connection lifecycle with Last
// Will and auto-reconnect, tracked subscriptions restored after reconnect,
// and the zigbee/ topic scheme builders.
package mqtt
