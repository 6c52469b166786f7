// Package models defines the order board's domain entities and the payload envelope shared by the poller and the update bus.
//
// The package contains two categories of types:
//
// 1. Order data: records decoded from the order server
//   - [Order] : A single drink order with its status and volatile wait time
//   - [Counts] : Per-status order counts
//   - [OrdersPayload] : The body of the pending-orders feed
//   - [Thresholds] : Wait-time colouring thresholds in minutes
//
// 2. Transport: the envelope every polled source produces
//   - [Payload] : Raw JSON body with the server's content hash and timestamp
//
// [Order.Differs] and [Order.Stable] both exclude the wait time, which the server recomputes on every request.
package models
