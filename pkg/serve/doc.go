// Package serve runs weft applications over websockets. Each client gets a
// session with its own in-memory document and update engine; the initial
// tree travels as HTML in the hello exchange, and every committed mutation
// after that streams as a binary frame (see the protocol package).
//
// Input events arrive as frames addressing nodes by their wire identifier,
// dispatch at user-blocking priority, and the resulting flush's writes go
// back in one batch. Sessions survive brief disconnects: a dropped
// connection keeps its state for the resume window and a reconnecting
// client picks up where its sequence number left off.
package serve
