// Package storage keeps the operator audit log: session starts and stops,
// tune/detune, authorizations, password rotations and relay summaries.
// Message contents are never stored.
package storage
