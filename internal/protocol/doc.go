// Package protocol owns the shared wire contract for the acquisition feed.
//
// Ownership boundary:
// - record types handed to sinks
// - error taxonomy (framing, decode, protocol, connection, channel)
// - little-endian field reader/writer used by the binary decoders
package protocol
