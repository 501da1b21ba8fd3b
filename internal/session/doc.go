// Package session runs the verbose stream client: one subscribe channel for
// data/event/spike/param messages and one request-reply channel for
// synthetic events and heartbeats.
//
// Ownership boundary:
// - channel lifecycle and bounded polling (Session)
// - request envelopes and the single outstanding request gate (dispatcher)
// - heartbeat, retry pacing and request channel re-creation (Monitor)
//
// All state is owned by the goroutine calling Cycle or Run.
package session
