package zstack

// ZNP command identifiers, per subsystem.

// SYS commands.
const (
	sysResetReq    uint8 = 0x00 // AREQ out
	sysVersion     uint8 = 0x02
	sysOsalNVWrite uint8 = 0x09
	sysResetInd    uint8 = 0x80 // AREQ in
)

// NV items holding the network configuration, written before startup.
const (
	nvExtendedPANID    uint16 = 0x002D
	nvPrecfgKey        uint16 = 0x0062
	nvPrecfgKeysEnable uint16 = 0x0063
	nvPANID            uint16 = 0x0083
	nvChannelList      uint16 = 0x0084
	nvLogicalType      uint16 = 0x0087
	nvZDODirectCB      uint16 = 0x008F
)

// AF commands.
const (
	afRegister    uint8 = 0x00
	afDataRequest uint8 = 0x01
	afDataConfirm uint8 = 0x80 // AREQ in
	afIncomingMsg uint8 = 0x81 // AREQ in
)

// ZDO commands.
const (
	zdoNodeDescReq   uint8 = 0x02
	zdoSimpleDescReq uint8 = 0x04
	zdoActiveEpReq   uint8 = 0x05
	zdoMgmtPermitJoinReq uint8 = 0x36
	zdoStartupFromApp    uint8 = 0x40

	zdoNodeDescRsp       uint8 = 0x82 // AREQ in
	zdoSimpleDescRsp     uint8 = 0x84 // AREQ in
	zdoActiveEpRsp       uint8 = 0x85 // AREQ in
	zdoMgmtPermitJoinRsp uint8 = 0xB6 // AREQ in
	zdoStateChangeInd    uint8 = 0xC0 // AREQ in
	zdoEndDeviceAnnceInd uint8 = 0xC1 // AREQ in
	zdoLeaveInd          uint8 = 0xC9 // AREQ in
	zdoTCDevInd          uint8 = 0xCA // AREQ in
)

// UTIL commands.
const (
	utilGetDeviceInfo uint8 = 0x00
	utilLEDControl    uint8 = 0x0A
)

// deviceStateCoordinator is the ZDO state reported once the radio is up
// as a coordinator.
const deviceStateCoordinator uint8 = 0x09

// Addressing constants for management requests.
const (
	// permitJoinAddrMode broadcasts the permit-join request.
	permitJoinAddrMode uint8 = 0x0F

	// broadcastRoutersAndCoordinator is the 0xFFFC broadcast address.
	broadcastRoutersAndCoordinator uint16 = 0xFFFC
)
