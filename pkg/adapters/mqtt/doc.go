// Package mqtt mirrors committed scene batches, the scene snapshot and GUI
// control states to an MQTT broker.
package mqtt
