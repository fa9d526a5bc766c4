package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"event", topics.Event("deviceJoined"), "zigbee/event/deviceJoined"},
		{"message", topics.Message("0x000b57fffe8a5b22"), "zigbee/message/0x000b57fffe8a5b22"},
		{"permit join command", topics.CommandPermitJoin(), "zigbee/command/permit_join"},
		{"health", topics.Health(), "zigbee/health"},
		{"status", topics.Status(), "zigbee/status"},
		{"all events", topics.AllEvents(), "zigbee/event/+"},
		{"all messages", topics.AllMessages(), "zigbee/message/+"},
		{"all commands", topics.AllCommands(), "zigbee/command/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
