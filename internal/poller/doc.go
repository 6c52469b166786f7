// Package poller implements the adaptive polling loop that feeds one data source.
//
// A [Poller] fetches an endpoint on a [schedule.Scheduler], sends the last seen content hash as a validator,
// and only hands a payload to its [Handler] when the content changed. Intervals stretch while nothing changes
// and while requests fail, snap back to the minimum on any change, and the poller stops itself after
// [Config.MaxErrors] consecutive failures.
//
// At most one fetch is ever in flight per poller. Requests to poll immediately while a fetch is running are
// deferred until it settles, and results that arrive after [Poller.Stop] are discarded.
package poller
