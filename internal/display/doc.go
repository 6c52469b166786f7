// Package display reconciles order snapshots into a rendered board with minimal churn.
//
// [Reconciler] tracks the orders currently shown and drives a [Renderer]. [Diff] is the pure changeset
// computation it uses. [MarkupRenderer] is the HTML implementation served by the kiosk.
package display
