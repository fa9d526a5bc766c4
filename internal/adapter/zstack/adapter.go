package zstack

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tubededentifrice/zigbee-herdsman/internal/adapter"
	"github.com/tubededentifrice/zigbee-herdsman/internal/zcl"
)

const (
	// coordinatorEndpoint is the application endpoint the adapter
	// registers for itself.
	coordinatorEndpoint uint8 = 1

	// profileHomeAutomation is the HA application profile.
	profileHomeAutomation uint16 = 0x0104

	// deviceIDCombinedInterface is the HA device id the coordinator
	// endpoint announces.
	deviceIDCombinedInterface uint16 = 0x0005

	// defaultRadius caps multi-hop routing for outbound frames.
	defaultRadius uint8 = 30

	// zdoTimeout bounds the wait for asynchronous ZDO responses.
	zdoTimeout = 15 * time.Second

	// startupTimeout bounds the wait for the coordinator-started state
	// change after ZDO_STARTUP_FROM_APP.
	startupTimeout = 30 * time.Second

	eventBufferSize = 64
)

// Logger is the minimal logging interface used by the adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures the adapter.
type Options struct {
	// Port is the serial device path or a tcp:// URL.
	Port string

	// BaudRate is the serial line speed.
	BaudRate int

	// RTSCTS enables hardware flow control.
	RTSCTS bool

	// NetworkKey is the 16-byte network encryption key, committed to the
	// radio's NV store before startup. Empty leaves the stored key alone.
	NetworkKey []byte

	// PANID is the 16-bit network identifier. Zero leaves the stored
	// value alone.
	PANID uint16

	// ExtendedPANID is the 8-byte extended network identifier. Empty
	// leaves the stored value alone.
	ExtendedPANID []byte

	// Channels lists the 2.4 GHz channels (11-26) the network may use.
	Channels []int

	Logger Logger
}

// productNames maps the SYS_VERSION product byte to a stack name.
var productNames = map[uint8]string{
	0: "zStack12",
	1: "zStack3x0",
	2: "zStack30x",
}

// waiter captures one expected asynchronous frame.
type waiter struct {
	subsystem uint8
	command   uint8
	match     func(data []byte) bool
	ch        chan []byte
}

// Adapter drives a Texas Instruments ZNP coordinator over the MT
// protocol. It implements the adapter boundary: synchronous commands go
// out as SREQs, and unsolicited indications surface as events.
type Adapter struct {
	opts   Options
	logger Logger

	client *znpClient
	events chan adapter.Event

	coordinator adapter.Coordinator
	version     adapter.Version

	// sequence numbers ZCL transactions and AF transaction ids.
	sequence atomic.Uint32

	waiters  []*waiter
	waiterMu sync.Mutex

	started bool
	mu      sync.Mutex

	stopOnce sync.Once
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates an adapter. Call Start to open the link.
func New(opts Options) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Adapter{
		opts:   opts,
		logger: logger,
		events: make(chan adapter.Event, eventBufferSize),
	}
}

// Start opens the link, brings the network up and registers the
// coordinator's application endpoint.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}

	conn, err := openTransport(ctx, a.opts.Port, a.opts.BaudRate, a.opts.RTSCTS)
	if err != nil {
		return err
	}
	a.client = newZNPClient(conn, a.handleAsync, a.onTransportClosed, a.logger)

	if err := a.initialise(ctx); err != nil {
		a.client.Close()
		a.client = nil
		return err
	}

	a.started = true
	a.logger.Info("zstack adapter started",
		"port", a.opts.Port,
		"ieee_address", a.coordinator.IEEEAddress,
		"stack", a.version.Type)
	return nil
}

func (a *Adapter) initialise(ctx context.Context) error {
	if err := a.readVersion(ctx); err != nil {
		return fmt.Errorf("read firmware version: %w", err)
	}
	if err := a.configureNetwork(ctx); err != nil {
		return fmt.Errorf("write network configuration: %w", err)
	}
	if err := a.startNetwork(ctx); err != nil {
		return fmt.Errorf("start network: %w", err)
	}
	if err := a.readDeviceInfo(ctx); err != nil {
		return fmt.Errorf("read device info: %w", err)
	}
	if err := a.registerEndpoint(ctx); err != nil {
		return fmt.Errorf("register endpoint: %w", err)
	}
	return nil
}

func (a *Adapter) readVersion(ctx context.Context) error {
	rsp, err := a.client.Request(ctx, subsysSYS, sysVersion, nil)
	if err != nil {
		return err
	}
	if len(rsp) < 5 {
		return fmt.Errorf("zstack: SYS_VERSION response too short: %d bytes", len(rsp))
	}

	stack, ok := productNames[rsp[1]]
	if !ok {
		stack = fmt.Sprintf("unknown(0x%02x)", rsp[1])
	}

	meta := map[string]any{
		"transportrev": rsp[0],
		"product":      rsp[1],
		"majorrel":     rsp[2],
		"minorrel":     rsp[3],
		"maintrel":     rsp[4],
	}
	if len(rsp) >= 9 {
		meta["revision"] = binary.LittleEndian.Uint32(rsp[5:])
	}

	a.version = adapter.Version{Type: stack, Meta: meta}
	return nil
}

// configureNetwork commits the network parameters to the radio's NV store
// so ZDO_STARTUP_FROM_APP brings the network up with them. Options left
// unset are not written and the radio keeps its stored values.
func (a *Adapter) configureNetwork(ctx context.Context) error {
	type nvItem struct {
		id    uint16
		value []byte
	}

	items := []nvItem{
		{nvLogicalType, []byte{0x00}}, // coordinator
		{nvZDODirectCB, []byte{0x01}}, // AF messages as MT callbacks
	}
	if a.opts.PANID != 0 {
		items = append(items, nvItem{nvPANID, binary.LittleEndian.AppendUint16(nil, a.opts.PANID)})
	}
	if len(a.opts.ExtendedPANID) == 8 {
		items = append(items, nvItem{nvExtendedPANID, a.opts.ExtendedPANID})
	}
	if len(a.opts.Channels) > 0 {
		items = append(items, nvItem{nvChannelList, binary.LittleEndian.AppendUint32(nil, channelMask(a.opts.Channels))})
	}
	if len(a.opts.NetworkKey) == 16 {
		items = append(items,
			nvItem{nvPrecfgKey, a.opts.NetworkKey},
			// 0 distributes the key to joiners in the clear, the usual
			// Home Automation arrangement.
			nvItem{nvPrecfgKeysEnable, []byte{0x00}},
		)
	}

	for _, item := range items {
		if err := a.writeNV(ctx, item.id, item.value); err != nil {
			return err
		}
	}
	return nil
}

// writeNV issues one SYS_OSAL_NV_WRITE and checks its status byte.
func (a *Adapter) writeNV(ctx context.Context, id uint16, value []byte) error {
	rsp, err := a.client.Request(ctx, subsysSYS, sysOsalNVWrite, nvWriteData(id, value))
	if err != nil {
		return err
	}
	if len(rsp) >= 1 && rsp[0] != 0 {
		return fmt.Errorf("%w: NV write 0x%04x status 0x%02x", adapter.ErrCommandFailed, id, rsp[0])
	}
	return nil
}

// nvWriteData builds the SYS_OSAL_NV_WRITE payload: item id, offset,
// value length, value.
func nvWriteData(id uint16, value []byte) []byte {
	data := binary.LittleEndian.AppendUint16(nil, id)
	data = append(data, 0x00, byte(len(value)))
	return append(data, value...)
}

// channelMask folds a channel list into the 32-bit mask the radio
// expects, one bit per 802.15.4 channel. Out-of-band entries are ignored.
func channelMask(channels []int) uint32 {
	var mask uint32
	for _, ch := range channels {
		if ch >= 11 && ch <= 26 {
			mask |= 1 << uint(ch)
		}
	}
	return mask
}

// startNetwork issues ZDO_STARTUP_FROM_APP and waits for the radio to
// report the coordinator-started state.
func (a *Adapter) startNetwork(ctx context.Context) error {
	w := a.addWaiter(subsysZDO, zdoStateChangeInd, func(data []byte) bool {
		return len(data) >= 1 && data[0] == deviceStateCoordinator
	})
	defer a.removeWaiter(w)

	startDelay := []byte{0x64, 0x00} // 100ms
	rsp, err := a.client.Request(ctx, subsysZDO, zdoStartupFromApp, startDelay)
	if err != nil {
		return err
	}
	// 0 = restored network, 1 = new network; 2 means the radio refused.
	if len(rsp) >= 1 && rsp[0] > 1 {
		return fmt.Errorf("%w: startup status 0x%02x", adapter.ErrCommandFailed, rsp[0])
	}

	if _, err := a.await(ctx, w, startupTimeout); err != nil {
		return fmt.Errorf("coordinator did not reach started state: %w", err)
	}
	return nil
}

func (a *Adapter) readDeviceInfo(ctx context.Context) error {
	rsp, err := a.client.Request(ctx, subsysUTIL, utilGetDeviceInfo, nil)
	if err != nil {
		return err
	}

	ieee, nwk, err := parseDeviceInfo(rsp)
	if err != nil {
		return err
	}

	a.coordinator = adapter.Coordinator{
		IEEEAddress:    ieee,
		NetworkAddress: nwk,
		Endpoints: []adapter.CoordinatorEndpoint{
			{ID: coordinatorEndpoint, ProfileID: profileHomeAutomation, DeviceID: deviceIDCombinedInterface},
		},
	}
	return nil
}

func (a *Adapter) registerEndpoint(ctx context.Context) error {
	data := []byte{
		coordinatorEndpoint,
	}
	data = binary.LittleEndian.AppendUint16(data, profileHomeAutomation)
	data = binary.LittleEndian.AppendUint16(data, deviceIDCombinedInterface)
	data = append(data, 0x00, 0x00) // device version, latency
	data = append(data, 0x00)       // no input clusters
	data = append(data, 0x00)       // no output clusters

	rsp, err := a.client.Request(ctx, subsysAF, afRegister, data)
	if err != nil {
		return err
	}
	// 0xB8 means the endpoint survived a previous run; that is fine.
	if len(rsp) >= 1 && rsp[0] != 0x00 && rsp[0] != 0xB8 {
		return fmt.Errorf("%w: AF_REGISTER status 0x%02x", adapter.ErrCommandFailed, rsp[0])
	}
	return nil
}

// Stop closes the link and the events channel.
func (a *Adapter) Stop() error {
	var err error
	a.stopOnce.Do(func() {
		a.mu.Lock()
		started := a.started
		a.started = false
		a.mu.Unlock()

		if started && a.client != nil {
			err = a.client.Close()
		}
		close(a.events)
		a.logger.Info("zstack adapter stopped")
	})
	return err
}

// Events delivers network indications in arrival order.
func (a *Adapter) Events() <-chan adapter.Event {
	return a.events
}

// Coordinator returns the radio's own identity.
func (a *Adapter) Coordinator(_ context.Context) (adapter.Coordinator, error) {
	if err := a.ensureStarted(); err != nil {
		return adapter.Coordinator{}, err
	}
	return a.coordinator, nil
}

// CoordinatorVersion returns the firmware version read at startup.
func (a *Adapter) CoordinatorVersion(_ context.Context) (adapter.Version, error) {
	if err := a.ensureStarted(); err != nil {
		return adapter.Version{}, err
	}
	return a.version, nil
}

// PermitJoin broadcasts a management permit-join request. Zero seconds
// closes the network.
func (a *Adapter) PermitJoin(ctx context.Context, seconds uint8) error {
	if err := a.ensureStarted(); err != nil {
		return err
	}

	data := []byte{permitJoinAddrMode}
	data = binary.LittleEndian.AppendUint16(data, broadcastRoutersAndCoordinator)
	data = append(data, seconds, 0x00) // duration, TC significance

	rsp, err := a.client.Request(ctx, subsysZDO, zdoMgmtPermitJoinReq, data)
	if err != nil {
		return err
	}
	if len(rsp) >= 1 && rsp[0] != 0 {
		return fmt.Errorf("%w: permit join status 0x%02x", adapter.ErrCommandFailed, rsp[0])
	}
	return nil
}

// SoftReset restarts the firmware and waits for the reset indication.
func (a *Adapter) SoftReset(ctx context.Context) error {
	if err := a.ensureStarted(); err != nil {
		return err
	}

	w := a.addWaiter(subsysSYS, sysResetInd, nil)
	defer a.removeWaiter(w)

	if err := a.client.Send(subsysSYS, sysResetReq, []byte{0x01}); err != nil { // soft reset
		return err
	}

	if _, err := a.await(ctx, w, startupTimeout); err != nil {
		return fmt.Errorf("no reset indication: %w", err)
	}
	return nil
}

// SetLED drives the status LED.
func (a *Adapter) SetLED(ctx context.Context, enabled bool) error {
	if err := a.ensureStarted(); err != nil {
		return err
	}

	mode := byte(0)
	if enabled {
		mode = 1
	}
	// LED id 3 is the status LED on CC253x/CC26x2 sticks.
	rsp, err := a.client.Request(ctx, subsysUTIL, utilLEDControl, []byte{0x03, mode})
	if err != nil {
		return err
	}
	if len(rsp) >= 1 && rsp[0] != 0 {
		return fmt.Errorf("%w: LED control status 0x%02x", adapter.ErrCommandFailed, rsp[0])
	}
	return nil
}

// SendFrame encodes and transmits one application frame.
func (a *Adapter) SendFrame(ctx context.Context, networkAddress uint16, endpoint uint8, frame zcl.Frame) error {
	if err := a.ensureStarted(); err != nil {
		return err
	}

	payload, err := encodeZCLFrame(frame)
	if err != nil {
		return err
	}
	return a.sendAF(ctx, networkAddress, endpoint, frame.ClusterID, payload)
}

func (a *Adapter) sendAF(ctx context.Context, networkAddress uint16, endpoint uint8, clusterID uint16, payload []byte) error {
	data := binary.LittleEndian.AppendUint16(nil, networkAddress)
	data = append(data, endpoint, coordinatorEndpoint)
	data = binary.LittleEndian.AppendUint16(data, clusterID)
	data = append(data, a.nextSequence(), 0x00, defaultRadius) // trans id, options, radius
	data = append(data, byte(len(payload)))
	data = append(data, payload...)

	rsp, err := a.client.Request(ctx, subsysAF, afDataRequest, data)
	if err != nil {
		return err
	}
	if len(rsp) >= 1 && rsp[0] != 0 {
		return fmt.Errorf("%w: AF_DATA_REQUEST status 0x%02x", adapter.ErrCommandFailed, rsp[0])
	}
	return nil
}

// NodeDescriptor requests and awaits the device's node descriptor.
func (a *Adapter) NodeDescriptor(ctx context.Context, networkAddress uint16) (adapter.NodeDescriptor, error) {
	if err := a.ensureStarted(); err != nil {
		return adapter.NodeDescriptor{}, err
	}

	w := a.addWaiter(subsysZDO, zdoNodeDescRsp, matchZDOAddress(networkAddress))
	defer a.removeWaiter(w)

	data := binary.LittleEndian.AppendUint16(nil, networkAddress)
	data = binary.LittleEndian.AppendUint16(data, networkAddress)
	if err := a.requestZDO(ctx, zdoNodeDescReq, data); err != nil {
		return adapter.NodeDescriptor{}, err
	}

	rsp, err := a.await(ctx, w, zdoTimeout)
	if err != nil {
		return adapter.NodeDescriptor{}, err
	}

	logicalType, manufacturerID, err := parseNodeDescRsp(rsp)
	if err != nil {
		return adapter.NodeDescriptor{}, err
	}
	return adapter.NodeDescriptor{Type: logicalType, ManufacturerID: manufacturerID}, nil
}

// ActiveEndpoints requests and awaits the device's endpoint list.
func (a *Adapter) ActiveEndpoints(ctx context.Context, networkAddress uint16) ([]uint8, error) {
	if err := a.ensureStarted(); err != nil {
		return nil, err
	}

	w := a.addWaiter(subsysZDO, zdoActiveEpRsp, matchZDOAddress(networkAddress))
	defer a.removeWaiter(w)

	data := binary.LittleEndian.AppendUint16(nil, networkAddress)
	data = binary.LittleEndian.AppendUint16(data, networkAddress)
	if err := a.requestZDO(ctx, zdoActiveEpReq, data); err != nil {
		return nil, err
	}

	rsp, err := a.await(ctx, w, zdoTimeout)
	if err != nil {
		return nil, err
	}
	return parseActiveEpRsp(rsp)
}

// SimpleDescriptor requests and awaits the descriptor of one endpoint.
func (a *Adapter) SimpleDescriptor(ctx context.Context, networkAddress uint16, endpoint uint8) (adapter.SimpleDescriptor, error) {
	if err := a.ensureStarted(); err != nil {
		return adapter.SimpleDescriptor{}, err
	}

	w := a.addWaiter(subsysZDO, zdoSimpleDescRsp, func(data []byte) bool {
		return matchZDOAddress(networkAddress)(data) && len(data) >= 7 && data[6] == endpoint
	})
	defer a.removeWaiter(w)

	data := binary.LittleEndian.AppendUint16(nil, networkAddress)
	data = binary.LittleEndian.AppendUint16(data, networkAddress)
	data = append(data, endpoint)
	if err := a.requestZDO(ctx, zdoSimpleDescReq, data); err != nil {
		return adapter.SimpleDescriptor{}, err
	}

	rsp, err := a.await(ctx, w, zdoTimeout)
	if err != nil {
		return adapter.SimpleDescriptor{}, err
	}

	ep, profileID, deviceID, in, out, err := parseSimpleDescRsp(rsp)
	if err != nil {
		return adapter.SimpleDescriptor{}, err
	}
	return adapter.SimpleDescriptor{
		Endpoint:       ep,
		ProfileID:      profileID,
		DeviceID:       deviceID,
		InputClusters:  in,
		OutputClusters: out,
	}, nil
}

// ReadAttributes sends a global read and awaits the read response,
// correlated by source, cluster and transaction sequence.
func (a *Adapter) ReadAttributes(ctx context.Context, networkAddress uint16, endpoint uint8, clusterID uint16, attributes []string) (map[string]any, error) {
	if err := a.ensureStarted(); err != nil {
		return nil, err
	}

	sequence := a.nextSequence()
	payload, err := encodeReadRequest(clusterID, sequence, attributes)
	if err != nil {
		return nil, err
	}

	w := a.addWaiter(subsysAF, afIncomingMsg, func(data []byte) bool {
		msg, err := parseIncomingMsg(data)
		if err != nil || len(msg.Data) < 3 {
			return false
		}
		return msg.SourceAddress == networkAddress &&
			msg.SourceEndpoint == endpoint &&
			msg.ClusterID == clusterID &&
			msg.Data[0]&fcTypeMask == byte(zcl.FrameTypeGlobal) &&
			msg.Data[1] == sequence &&
			msg.Data[2] == zcl.CommandIDReadResponse
	})
	defer a.removeWaiter(w)

	if err := a.sendAF(ctx, networkAddress, endpoint, clusterID, payload); err != nil {
		return nil, err
	}

	rsp, err := a.await(ctx, w, zdoTimeout)
	if err != nil {
		return nil, err
	}

	msg, err := parseIncomingMsg(rsp)
	if err != nil {
		return nil, err
	}
	frame, err := decodeZCLFrame(msg.ClusterID, msg.Data)
	if err != nil {
		return nil, err
	}
	return frame.AttributeMap(), nil
}

// requestZDO issues a ZDO SREQ and checks the SRSP status byte.
func (a *Adapter) requestZDO(ctx context.Context, command uint8, data []byte) error {
	rsp, err := a.client.Request(ctx, subsysZDO, command, data)
	if err != nil {
		return err
	}
	if len(rsp) >= 1 && rsp[0] != 0 {
		return fmt.Errorf("%w: ZDO request 0x%02x status 0x%02x", adapter.ErrCommandFailed, command, rsp[0])
	}
	return nil
}

// matchZDOAddress matches ZDO responses whose network address of
// interest (bytes 3-4, after srcaddr and status) equals the target.
func matchZDOAddress(networkAddress uint16) func([]byte) bool {
	return func(data []byte) bool {
		return len(data) >= 5 && binary.LittleEndian.Uint16(data[3:]) == networkAddress
	}
}

func (a *Adapter) ensureStarted() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return adapter.ErrNotStarted
	}
	return nil
}

func (a *Adapter) nextSequence() uint8 {
	return uint8(a.sequence.Add(1))
}

// addWaiter registers interest in the next AREQ matching the key. A
// consumed frame is not re-dispatched as an event.
func (a *Adapter) addWaiter(subsystem, command uint8, match func([]byte) bool) *waiter {
	w := &waiter{
		subsystem: subsystem,
		command:   command,
		match:     match,
		ch:        make(chan []byte, 1),
	}
	a.waiterMu.Lock()
	a.waiters = append(a.waiters, w)
	a.waiterMu.Unlock()
	return w
}

func (a *Adapter) removeWaiter(w *waiter) {
	a.waiterMu.Lock()
	defer a.waiterMu.Unlock()
	for i, existing := range a.waiters {
		if existing == w {
			a.waiters = append(a.waiters[:i], a.waiters[i+1:]...)
			return
		}
	}
}

func (a *Adapter) await(ctx context.Context, w *waiter, timeout time.Duration) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, adapter.ErrTimeout
	case data := <-w.ch:
		return data, nil
	}
}

// deliverToWaiter hands the frame to the first matching waiter, if any.
func (a *Adapter) deliverToWaiter(frame mtFrame) bool {
	a.waiterMu.Lock()
	defer a.waiterMu.Unlock()

	for i, w := range a.waiters {
		if w.subsystem != frame.Subsystem || w.command != frame.Command {
			continue
		}
		if w.match != nil && !w.match(frame.Data) {
			continue
		}
		w.ch <- frame.Data
		a.waiters = append(a.waiters[:i], a.waiters[i+1:]...)
		return true
	}
	return false
}

// handleAsync dispatches AREQs: solicited responses go to waiters,
// everything else becomes an event.
func (a *Adapter) handleAsync(frame mtFrame) {
	if a.deliverToWaiter(frame) {
		return
	}

	switch {
	case frame.Subsystem == subsysZDO && frame.Command == zdoTCDevInd:
		nwk, ieee, err := parseDeviceJoin(frame.Data)
		if err != nil {
			a.logger.Warn("bad TC_DEV_IND", "error", err)
			return
		}
		a.emit(adapter.DeviceJoined{NetworkAddress: nwk, IEEEAddress: ieee})

	case frame.Subsystem == subsysZDO && frame.Command == zdoEndDeviceAnnceInd:
		nwk, ieee, err := parseDeviceAnnounce(frame.Data)
		if err != nil {
			a.logger.Warn("bad END_DEVICE_ANNCE_IND", "error", err)
			return
		}
		a.emit(adapter.DeviceAnnounce{NetworkAddress: nwk, IEEEAddress: ieee})

	case frame.Subsystem == subsysZDO && frame.Command == zdoLeaveInd:
		nwk, ieee, err := parseDeviceLeave(frame.Data)
		if err != nil {
			a.logger.Warn("bad LEAVE_IND", "error", err)
			return
		}
		a.emit(adapter.DeviceLeave{NetworkAddress: nwk, IEEEAddress: ieee})

	case frame.Subsystem == subsysAF && frame.Command == afIncomingMsg:
		a.handleIncomingMsg(frame.Data)

	case frame.Subsystem == subsysSYS && frame.Command == sysResetInd:
		a.logger.Info("coordinator reset indication")

	default:
		a.logger.Debug("unhandled indication",
			"subsystem", frame.Subsystem, "command", frame.Command)
	}
}

func (a *Adapter) handleIncomingMsg(data []byte) {
	msg, err := parseIncomingMsg(data)
	if err != nil {
		a.logger.Warn("bad AF_INCOMING_MSG", "error", err)
		return
	}

	frame, err := decodeZCLFrame(msg.ClusterID, msg.Data)
	if err != nil {
		a.logger.Warn("undecodable frame",
			"cluster_id", fmt.Sprintf("0x%04x", msg.ClusterID),
			"source", fmt.Sprintf("0x%04x", msg.SourceAddress),
			"error", err)
		return
	}

	a.emit(adapter.FrameReceived{
		NetworkAddress: msg.SourceAddress,
		Endpoint:       msg.SourceEndpoint,
		Frame:          frame,
		LinkQuality:    msg.LinkQuality,
		GroupID:        msg.GroupID,
		WasBroadcast:   msg.WasBroadcast,
	})
}

// onTransportClosed runs when the read loop dies on a transport error.
// An orderly Stop closes the client first, which suppresses the callback,
// so reaching here means the link dropped out from under a running
// adapter.
func (a *Adapter) onTransportClosed(err error) {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()
	if !started {
		return
	}

	a.logger.Error("transport lost", "error", err)
	a.emit(adapter.Disconnected{Reason: err})
}

// emit queues an event without ever blocking the read loop; if the
// consumer has fallen an entire buffer behind, the event is dropped.
func (a *Adapter) emit(ev adapter.Event) {
	select {
	case a.events <- ev:
	default:
		a.logger.Warn("event buffer full, dropping event")
	}
}
