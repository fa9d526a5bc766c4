package controller

import (
	"sync"

	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
	"github.com/tubededentifrice/zigbee-herdsman/internal/zcl"
)

// EventType identifies the kind of controller event.
type EventType string

// Controller event types.
const (
	EventDeviceJoined          EventType = "deviceJoined"
	EventDeviceInterview       EventType = "deviceInterview"
	EventDeviceAnnounce        EventType = "deviceAnnounce"
	EventDeviceLeave           EventType = "deviceLeave"
	EventDeviceNetworkAddress  EventType = "deviceNetworkAddressChanged"
	EventPermitJoinChanged     EventType = "permitJoinChanged"
	EventMessage               EventType = "message"
	EventAdapterDisconnected   EventType = "adapterDisconnected"
)

// Interview status values carried by EventDeviceInterview.
const (
	InterviewStatusStarted           = "started"
	InterviewStatusSuccessful        = "successful"
	InterviewStatusFailed            = "failed"
	InterviewStatusAlreadyInProgress = "already_in_progress"
)

// Message is the payload of an EventMessage: one classified application
// frame from one device.
type Message struct {
	Kind zcl.MessageKind

	IEEEAddress    string
	NetworkAddress uint16

	// Endpoint is the source endpoint on the device.
	Endpoint uint8

	ClusterID uint16

	// Data is the flattened attribute map for reports and read responses,
	// or the command payload for cluster commands.
	Data map[string]any

	LinkQuality uint8

	// GroupID is non-zero for group-cast frames.
	GroupID uint16
}

// Event is one controller event delivered to subscribers.
type Event struct {
	Type EventType

	// Device is a copy of the device record, set for device events.
	Device *device.Device

	// InterviewStatus is set for EventDeviceInterview.
	InterviewStatus string

	// Message is set for EventMessage.
	Message *Message

	// PermitJoin is set for EventPermitJoinChanged.
	PermitJoin *bool
}

// defaultBusBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind starts losing events rather than stalling the
// event loop.
const defaultBusBuffer = 256

// Bus fans controller events out to subscribers. Publish never blocks;
// slow subscribers drop events.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool

	logger Logger
}

// NewBus creates an event bus.
func NewBus(logger Logger) *Bus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event, defaultBusBuffer)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("event dropped for slow subscriber",
				"subscriber", id, "event", ev.Type)
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
