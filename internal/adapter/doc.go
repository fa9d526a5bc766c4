// Package adapter defines the boundary to the coordinator radio.
//
// An Adapter owns the serial transport and the binary frame codec for one
// coordinator stack. The controller consumes decoded events from Events()
// and issues decoded requests; nothing above this package sees wire bytes.
package adapter
