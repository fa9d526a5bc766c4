package mqtt

import "fmt"

// Topic prefixes. Everything the daemon publishes or consumes lives under
// the flat scheme zigbee/{category}/....
const (
	// TopicPrefix is the base for all zigbeed topics.
	TopicPrefix = "zigbee"
)

// Topics provides builders for zigbeed MQTT topics. Using these helpers
// keeps topic naming consistent across publishers and subscribers.
type Topics struct{}

// Event returns the topic for controller events of one kind.
//
// Example: zigbee/event/deviceJoined
func (Topics) Event(kind string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, kind)
}

// Message returns the per-device topic for application messages.
//
// Example: zigbee/message/0x000b57fffe8a5b22
func (Topics) Message(ieeeAddress string) string {
	return fmt.Sprintf("%s/message/%s", TopicPrefix, ieeeAddress)
}

// Command returns the topic for one inbound command.
//
// Example: zigbee/command/permit_join
func (Topics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, name)
}

// CommandPermitJoin returns the permit-join command topic.
func (t Topics) CommandPermitJoin() string {
	return t.Command("permit_join")
}

// Health returns the daemon health heartbeat topic.
//
// Example: zigbee/health
func (Topics) Health() string {
	return fmt.Sprintf("%s/health", TopicPrefix)
}

// Status returns the retained online/offline status topic, also used for
// the Last Will.
//
// Example: zigbee/status
func (Topics) Status() string {
	return fmt.Sprintf("%s/status", TopicPrefix)
}

// AllEvents returns a pattern matching every event topic.
//
// Pattern: zigbee/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefix)
}

// AllMessages returns a pattern matching every per-device message topic.
//
// Pattern: zigbee/message/+
func (Topics) AllMessages() string {
	return fmt.Sprintf("%s/message/+", TopicPrefix)
}

// AllCommands returns a pattern matching every command topic.
//
// Pattern: zigbee/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}
