// Package device holds the persistent model of the network: devices keyed
// by their permanent IEEE address, their interview results, and multicast
// groups. The Registry fronts the SQLite repositories with an in-memory
// cache indexed by both IEEE and network address.
package device
