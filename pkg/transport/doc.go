// Package transport implements the UDP link layer used by gamelink peers.
//
// Key concepts:
//   - Link: a channel to one remote UDP endpoint with its own FIFO queue of
//     outbound frames and a lifecycle (unconnected, connecting, connected, closed)
//   - Manager: owns the local socket and every Link, demultiplexes inbound
//     datagrams by remote address and flushes links flagged for sending
//   - Category: a one-byte tag carried with each data frame so receivers can
//     route payloads without decoding them
//
// Queueing never blocks. Payloads leave the socket only after the link has
// been handed to Manager.AddLinkToSend, and frames of one link are written in
// the order they were queued.
package transport
