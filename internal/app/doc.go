// Package app provides the application service layer.
//
// Reactions applies like/dislike transitions as one unit of work with optimistic retries.
// CounterReconciler repairs counters that drifted from the reaction rows.
// Depends on domain interfaces, not concrete implementations.
package app
