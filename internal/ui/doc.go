// Package ui implements the terminal order board using bubbletea's Elm architecture.
//
// [Board] is the terminal [display.Renderer]; a [display.Reconciler] drives it
// from orders payloads delivered by the update bus, and the rows are shown
// through a bubbles list. Bus callbacks run on poller goroutines, so they post
// messages to the model's inbox and every board mutation happens inside Update.
//
// Keys: ↑/k ↓/j move, s start, c complete, d delete (confirm with y/n),
// p print the label, r refresh, m toggle sound, q quit. Failures raised through
// [Model.Alert] block the board behind a banner until dismissed with enter.
//
// Focus and blur reports drive the bus: regaining focus resumes every poller;
// losing it marks the bus inactive and, with PauseOnBlur, pauses polling.
package ui
