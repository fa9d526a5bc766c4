// Package mqtt bridges the controller to an MQTT broker: controller
// events and application messages are published as JSON envelopes under
// zigbee/, inbound commands (permit join) are relayed to the controller,
// and a retained health heartbeat is published periodically.
package mqtt
