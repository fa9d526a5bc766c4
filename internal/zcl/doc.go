// Package zcl defines the structured model of application-layer frames.
//
// The binary codec that produces these frames lives behind the adapter
// boundary; this package holds only what the controller needs to classify
// and answer frames: the decoded Frame type, the closed command-name→kind
// table, attribute flattening, and default-response construction.
package zcl
