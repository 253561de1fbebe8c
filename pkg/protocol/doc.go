// Package protocol implements the binary wire format between a weft server
// and its clients: committed host mutations flow server to client, input
// events flow client to server, over a WebSocket connection.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): connection setup and session resume
//   - FrameEvent (0x01): client → server input events
//   - FrameMutations (0x02): server → client committed mutations
//   - FrameControl (0x03): ping, pong, close
//   - FrameError (0x04): error reports
//
// # Encoding
//
// Small integers are protobuf-style varints, signed values ZigZag-encoded,
// strings length-prefixed, fixed-width integers big-endian. No reflection
// anywhere on the hot path.
//
// Mutations carry session-scoped node identifiers assigned by the server.
// Inserted subtrees travel as serialized HTML; everything after the insert
// addresses nodes by identifier. A batch covers one engine flush, with the
// final frame of the flush flagged so clients can paint atomically.
package protocol
