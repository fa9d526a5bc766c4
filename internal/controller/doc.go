// Package controller owns the running network. It drives the adapter,
// admits and interviews joining devices, classifies incoming frames into
// message events, answers the default-response obligation and manages the
// permit-join window. Consumers observe everything through the event Bus.
//
// Error policy: failures during Start are fatal (wrapped in ErrStartup);
// once running, every failure is logged and dropped so a misbehaving
// device can never take the controller down.
package controller
