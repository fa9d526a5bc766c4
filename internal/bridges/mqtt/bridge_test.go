package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tubededentifrice/zigbee-herdsman/internal/controller"
	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
	mqttclient "github.com/tubededentifrice/zigbee-herdsman/internal/infrastructure/mqtt"
)

const testIEEE = "0x000b57fffe8a5b22"

// mockBroker records publishes and subscriptions.
type mockBroker struct {
	mu            sync.Mutex
	published     []publishedMessage
	subscriptions map[string]mqttclient.MessageHandler
	connected     bool
}

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func newMockBroker() *mockBroker {
	return &mockBroker{
		subscriptions: make(map[string]mqttclient.MessageHandler),
		connected:     true,
	}
}

func (m *mockBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedMessage{topic, payload, qos, retained})
	return nil
}

func (m *mockBroker) Subscribe(topic string, qos byte, handler mqttclient.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = handler
	return nil
}

func (m *mockBroker) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockBroker) handler(topic string) mqttclient.MessageHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscriptions[topic]
}

// waitForPublish polls until a message arrives on a topic or the deadline
// expires.
func (m *mockBroker) waitForPublish(t *testing.T, topic string) publishedMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		for _, msg := range m.published {
			if msg.topic == topic {
				m.mu.Unlock()
				return msg
			}
		}
		m.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no publish on topic %q", topic)
	return publishedMessage{}
}

func (m *mockBroker) publishCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, msg := range m.published {
		if strings.HasPrefix(msg.topic, prefix) {
			count++
		}
	}
	return count
}

// mockController feeds events through a real bus and records permit-join
// calls.
type mockController struct {
	bus *controller.Bus

	mu          sync.Mutex
	permitCalls []bool
	devices     []device.Device
	permitted   bool
}

func newMockController() *mockController {
	return &mockController{bus: controller.NewBus(nil)}
}

func (m *mockController) Subscribe() (<-chan controller.Event, func()) {
	return m.bus.Subscribe()
}

func (m *mockController) PermitJoin(_ context.Context, permit bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permitCalls = append(m.permitCalls, permit)
	m.permitted = permit
	return nil
}

func (m *mockController) GetPermitJoin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permitted
}

func (m *mockController) GetDevices(context.Context) ([]device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices, nil
}

func (m *mockController) permitJoinCalls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.permitCalls...)
}

func startTestBridge(t *testing.T, broker *mockBroker, ctrl *mockController) *Bridge {
	t.Helper()
	bridge := New(Options{
		Broker:         broker,
		Controller:     ctrl,
		DaemonID:       "zigbeed-test",
		Version:        "test",
		HealthInterval: time.Hour, // only the initial heartbeat fires
	})
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(bridge.Stop)
	return bridge
}

func TestBridgeSubscribesToCommands(t *testing.T) {
	broker := newMockBroker()
	startTestBridge(t, broker, newMockController())

	if broker.handler("zigbee/command/permit_join") == nil {
		t.Error("expected subscription on zigbee/command/permit_join")
	}
}

func TestBridgePublishesDeviceEvent(t *testing.T) {
	broker := newMockBroker()
	ctrl := newMockController()
	startTestBridge(t, broker, ctrl)

	ctrl.bus.Publish(controller.Event{
		Type:   controller.EventDeviceJoined,
		Device: &device.Device{IEEEAddress: testIEEE, NetworkAddress: 0x4F12},
	})

	msg := broker.waitForPublish(t, "zigbee/event/deviceJoined")

	var envelope EventEnvelope
	if err := json.Unmarshal(msg.payload, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.ID == "" {
		t.Error("envelope ID is empty")
	}
	if envelope.Type != "deviceJoined" {
		t.Errorf("Type = %q, want deviceJoined", envelope.Type)
	}
	if envelope.Device == nil || envelope.Device.IEEEAddress != testIEEE {
		t.Errorf("Device = %+v, want ieee %s", envelope.Device, testIEEE)
	}
}

func TestBridgePublishesInterviewEvent(t *testing.T) {
	broker := newMockBroker()
	ctrl := newMockController()
	startTestBridge(t, broker, ctrl)

	ctrl.bus.Publish(controller.Event{
		Type:            controller.EventDeviceInterview,
		Device:          &device.Device{IEEEAddress: testIEEE},
		InterviewStatus: controller.InterviewStatusSuccessful,
	})

	msg := broker.waitForPublish(t, "zigbee/event/deviceInterview")

	var envelope EventEnvelope
	if err := json.Unmarshal(msg.payload, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.InterviewStatus != "successful" {
		t.Errorf("InterviewStatus = %q, want successful", envelope.InterviewStatus)
	}
}

func TestBridgePublishesMessageToDeviceTopic(t *testing.T) {
	broker := newMockBroker()
	ctrl := newMockController()
	startTestBridge(t, broker, ctrl)

	ctrl.bus.Publish(controller.Event{
		Type: controller.EventMessage,
		Message: &controller.Message{
			Kind:           "attributeReport",
			IEEEAddress:    testIEEE,
			NetworkAddress: 0x4F12,
			Endpoint:       1,
			ClusterID:      0x0006,
			Data:           map[string]any{"onOff": true},
			LinkQuality:    180,
		},
	})

	msg := broker.waitForPublish(t, "zigbee/message/"+testIEEE)

	var envelope MessageEnvelope
	if err := json.Unmarshal(msg.payload, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Kind != "attributeReport" {
		t.Errorf("Kind = %q, want attributeReport", envelope.Kind)
	}
	if envelope.ClusterID != 0x0006 {
		t.Errorf("ClusterID = 0x%04x, want 0x0006", envelope.ClusterID)
	}
	if on, ok := envelope.Data["onOff"].(bool); !ok || !on {
		t.Errorf("Data = %v, want onOff true", envelope.Data)
	}
	if envelope.LinkQuality != 180 {
		t.Errorf("LinkQuality = %d, want 180", envelope.LinkQuality)
	}

	// No event-topic copy for application messages.
	if count := broker.publishCount("zigbee/event/message"); count != 0 {
		t.Errorf("got %d publishes on event topic, want 0", count)
	}
}

func TestBridgeHandlesPermitJoinCommand(t *testing.T) {
	broker := newMockBroker()
	ctrl := newMockController()
	startTestBridge(t, broker, ctrl)

	handler := broker.handler("zigbee/command/permit_join")
	if handler == nil {
		t.Fatal("no permit join handler registered")
	}

	if err := handler("zigbee/command/permit_join", []byte(`{"permit":true}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if err := handler("zigbee/command/permit_join", []byte(`{"permit":false}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	calls := ctrl.permitJoinCalls()
	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Errorf("permit join calls = %v, want [true false]", calls)
	}
}

func TestBridgeIgnoresMalformedCommand(t *testing.T) {
	broker := newMockBroker()
	ctrl := newMockController()
	startTestBridge(t, broker, ctrl)

	handler := broker.handler("zigbee/command/permit_join")
	if err := handler("zigbee/command/permit_join", []byte(`not json`)); err != nil {
		t.Fatalf("malformed payload should be ignored, got error: %v", err)
	}

	if calls := ctrl.permitJoinCalls(); len(calls) != 0 {
		t.Errorf("permit join calls = %v, want none", calls)
	}
}

func TestBridgePublishesHealthHeartbeat(t *testing.T) {
	broker := newMockBroker()
	ctrl := newMockController()
	ctrl.devices = []device.Device{
		{IEEEAddress: "0x00124b0009d69f77", Type: device.TypeCoordinator},
		{IEEEAddress: testIEEE, Type: device.TypeRouter},
	}
	startTestBridge(t, broker, ctrl)

	msg := broker.waitForPublish(t, "zigbee/health")
	if !msg.retained {
		t.Error("health heartbeat should be retained")
	}

	var health HealthMessage
	if err := json.Unmarshal(msg.payload, &health); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if health.Status != HealthHealthy {
		t.Errorf("Status = %q, want healthy", health.Status)
	}
	if health.DevicesManaged != 2 {
		t.Errorf("DevicesManaged = %d, want 2", health.DevicesManaged)
	}
	if health.Daemon != "zigbeed-test" {
		t.Errorf("Daemon = %q, want zigbeed-test", health.Daemon)
	}
}

func TestBridgeStopPublishesStoppingHealth(t *testing.T) {
	broker := newMockBroker()
	ctrl := newMockController()
	bridge := startTestBridge(t, broker, ctrl)

	bridge.Stop()
	bridge.Stop() // idempotent

	broker.mu.Lock()
	defer broker.mu.Unlock()
	var last *HealthMessage
	for _, msg := range broker.published {
		if msg.topic == "zigbee/health" {
			var health HealthMessage
			if err := json.Unmarshal(msg.payload, &health); err != nil {
				t.Fatalf("unmarshal health: %v", err)
			}
			last = &health
		}
	}
	if last == nil {
		t.Fatal("no health messages published")
	}
	if last.Status != HealthStopping {
		t.Errorf("final Status = %q, want stopping", last.Status)
	}
}
