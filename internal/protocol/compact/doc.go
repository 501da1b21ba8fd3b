// Package compact decodes the fixed-layout binary encoding published to the
// companion listener.
//
// Every message is three frames:
//
//	frame 0: type tag, one byte (TTL=3, SPIKE=4, MESSAGE=5)
//	frame 1: timestamp in seconds, little-endian float64
//	frame 2: type-specific body
//
// Body layouts (little-endian):
//
//	standard header   node_id u8 | event_id u8 | pad u8 | event_channel u8
//	TTL               header | word u64
//	SPIKE             header | timestamp i64 | timestamp_software i64 | pad 2 |
//	                  n_channels u16 | n_samples u16 | sorted_id u16 | electrode_id u16 |
//	                  channel u16 | color r,g,b u8 | pad 1 | pc_proj_x f32 | pc_proj_y f32 |
//	                  sampling_frequency_hz u16 | [waveform | gain | threshold]
//	MESSAGE           UTF-8 text
package compact
