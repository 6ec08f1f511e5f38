// Package rpc owns the msgpack-rpc connection to the editor peer.
//
// Ownership boundary:
// - connection state machine and single-writer outbound stream
// - request id allocation and the pending request table
// - inbound routing: responses to waiters, everything else to one dispatch goroutine
// - initial connection establishment with backoff
//
// Reconnection is not handled here. A Conn that reaches StateClosed stays closed.
package rpc
