// Package notify tells the operator about new orders.
//
// A [CountWatcher] subscribes to the order-count feed on the update bus and
// rings a [Chime] whenever the pending count grows. The chime honours a
// [SoundPreference] that is persisted between runs.
package notify
