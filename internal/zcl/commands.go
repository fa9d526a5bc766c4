package zcl

// MessageKind classifies a frame for the application message event.
type MessageKind string

// Kinds for global commands.
const (
	KindAttributeReport MessageKind = "attributeReport"
	KindReadResponse    MessageKind = "readResponse"
)

// Kinds for cluster-specific commands. The value doubles as the event
// payload's kind string, matching the command's symbolic name.
const (
	KindCommandOn                             MessageKind = "commandOn"
	KindCommandOff                            MessageKind = "commandOff"
	KindCommandOffWithEffect                  MessageKind = "commandOffWithEffect"
	KindCommandToggle                         MessageKind = "commandToggle"
	KindCommandOnWithTimedOff                 MessageKind = "commandOnWithTimedOff"
	KindCommandMove                           MessageKind = "commandMove"
	KindCommandMoveWithOnOff                  MessageKind = "commandMoveWithOnOff"
	KindCommandStop                           MessageKind = "commandStop"
	KindCommandStopWithOnOff                  MessageKind = "commandStopWithOnOff"
	KindCommandMoveToLevel                    MessageKind = "commandMoveToLevel"
	KindCommandMoveToLevelWithOnOff           MessageKind = "commandMoveToLevelWithOnOff"
	KindCommandStep                           MessageKind = "commandStep"
	KindCommandStepWithOnOff                  MessageKind = "commandStepWithOnOff"
	KindCommandMoveToColorTemp                MessageKind = "commandMoveToColorTemp"
	KindCommandMoveToColor                    MessageKind = "commandMoveToColor"
	KindCommandMoveColorTemp                  MessageKind = "commandMoveColorTemp"
	KindCommandStepColorTemp                  MessageKind = "commandStepColorTemp"
	KindCommandMoveHue                        MessageKind = "commandMoveHue"
	KindCommandMoveToSaturation               MessageKind = "commandMoveToSaturation"
	KindCommandEnhancedMoveToHueAndSaturation MessageKind = "commandEnhancedMoveToHueAndSaturation"
	KindCommandColorLoopSet                   MessageKind = "commandColorLoopSet"
	KindCommandHueNotification                MessageKind = "commandHueNotification"
	KindCommandRecall                         MessageKind = "commandRecall"
	KindCommandStore                          MessageKind = "commandStore"
	KindCommandArm                            MessageKind = "commandArm"
	KindCommandPanic                          MessageKind = "commandPanic"
	KindCommandEmergency                      MessageKind = "commandEmergency"
	KindCommandStatusChangeNotification       MessageKind = "commandStatusChangeNotification"
	KindCommandNotification                   MessageKind = "commandNotification"
	KindCommandOperationEventNotification     MessageKind = "commandOperationEventNotification"
	KindCommandTradfriArrowSingle             MessageKind = "commandTradfriArrowSingle"
	KindCommandTradfriArrowHold               MessageKind = "commandTradfriArrowHold"
	KindCommandTradfriArrowRelease            MessageKind = "commandTradfriArrowRelease"
	KindCommandUpOpen                         MessageKind = "commandUpOpen"
	KindCommandDownClose                      MessageKind = "commandDownClose"
	KindCommandGetData                        MessageKind = "commandGetData"
	KindCommandSetDataResponse                MessageKind = "commandSetDataResponse"
	KindCommandGetWeeklyScheduleRsp           MessageKind = "commandGetWeeklyScheduleRsp"
	KindCommandQueryNextImageRequest          MessageKind = "commandQueryNextImageRequest"
)

// clusterCommandKinds is the closed mapping from a cluster command's
// symbolic name to the application message kind it produces. Commands
// absent from this table are skipped by the dispatcher.
var clusterCommandKinds = map[string]MessageKind{
	"commandOn":                             KindCommandOn,
	"commandOff":                            KindCommandOff,
	"commandOffWithEffect":                  KindCommandOffWithEffect,
	"commandToggle":                         KindCommandToggle,
	"commandOnWithTimedOff":                 KindCommandOnWithTimedOff,
	"commandMove":                           KindCommandMove,
	"commandMoveWithOnOff":                  KindCommandMoveWithOnOff,
	"commandStop":                           KindCommandStop,
	"commandStopWithOnOff":                  KindCommandStopWithOnOff,
	"commandMoveToLevel":                    KindCommandMoveToLevel,
	"commandMoveToLevelWithOnOff":           KindCommandMoveToLevelWithOnOff,
	"commandStep":                           KindCommandStep,
	"commandStepWithOnOff":                  KindCommandStepWithOnOff,
	"commandMoveToColorTemp":                KindCommandMoveToColorTemp,
	"commandMoveToColor":                    KindCommandMoveToColor,
	"commandMoveColorTemp":                  KindCommandMoveColorTemp,
	"commandStepColorTemp":                  KindCommandStepColorTemp,
	"commandMoveHue":                        KindCommandMoveHue,
	"commandMoveToSaturation":               KindCommandMoveToSaturation,
	"commandEnhancedMoveToHueAndSaturation": KindCommandEnhancedMoveToHueAndSaturation,
	"commandColorLoopSet":                   KindCommandColorLoopSet,
	"commandHueNotification":                KindCommandHueNotification,
	"commandRecall":                         KindCommandRecall,
	"commandStore":                          KindCommandStore,
	"commandArm":                            KindCommandArm,
	"commandPanic":                          KindCommandPanic,
	"commandEmergency":                      KindCommandEmergency,
	"commandStatusChangeNotification":       KindCommandStatusChangeNotification,
	"commandNotification":                   KindCommandNotification,
	"commandOperationEventNotification":     KindCommandOperationEventNotification,
	"commandTradfriArrowSingle":             KindCommandTradfriArrowSingle,
	"commandTradfriArrowHold":               KindCommandTradfriArrowHold,
	"commandTradfriArrowRelease":            KindCommandTradfriArrowRelease,
	"commandUpOpen":                         KindCommandUpOpen,
	"commandDownClose":                      KindCommandDownClose,
	"commandGetData":                        KindCommandGetData,
	"commandSetDataResponse":                KindCommandSetDataResponse,
	"commandGetWeeklyScheduleRsp":           KindCommandGetWeeklyScheduleRsp,
	"commandQueryNextImageRequest":          KindCommandQueryNextImageRequest,
}

// CommandKind looks up the message kind for a cluster command's symbolic
// name. The second return is false for commands outside the closed table.
func CommandKind(name string) (MessageKind, bool) {
	kind, ok := clusterCommandKinds[name]
	return kind, ok
}
