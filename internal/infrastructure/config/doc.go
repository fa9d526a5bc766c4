// Package config loads and validates zigbeed configuration.
//
// Configuration comes from a YAML file with hardcoded defaults and
// ZIGBEED_* environment variable overrides. Network and serial sections
// are pass-through material for the adapter; the controller core never
// interprets them.
package config
