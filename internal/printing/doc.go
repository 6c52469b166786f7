// Package printing opens order labels and fires the print action once they are ready.
//
// [Trigger.Print] polls a [Viewport] for readiness, waits a settle delay and prints exactly once.
// When readiness cannot be observed it prints after a longer fallback delay, and a global timeout
// stops the readiness loop no matter what. [LabelOpener] is the real [Opener]: it downloads the
// label document and hands it to the system print spooler.
package printing
