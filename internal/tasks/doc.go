// Package tasks carries out operator actions against orders.
//
// [OrderActions] wraps the order client with the board's follow-up
// behaviour: a successful start, complete or delete forces a refresh of the
// orders source on the update bus, and a failure raises a single blocking
// alert ("Failed to update order status" / "Failed to delete order").
// Nothing is retried.
//
// # Bulk Actions
//
// [OrderActions.Bulk] applies one action to many orders through a small
// rate-limited worker pool and reports each result as a [ProgressUpdate].
// Progress sends never block; a full or nil channel drops the update.
package tasks
