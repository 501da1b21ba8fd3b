// Package verbose decodes the JSON-envelope encoding published on the data
// channel and builds the JSON requests sent on the event channel.
//
// Inbound messages are 2 or 3 frames: envelope, reserved, optional payload.
// Outbound requests are a single JSON frame.
package verbose
