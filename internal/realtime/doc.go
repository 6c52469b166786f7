// Package realtime multiplexes subscribers onto one [poller.Poller] per data source.
//
// A [Bus] is constructed explicitly and torn down with [Bus.Close]. The first [Bus.Subscribe] for a source
// creates and starts its poller; the last unsubscribe stops and discards it. Payloads whose hash matches the
// cached payload for the source are dropped before any transform runs.
package realtime
