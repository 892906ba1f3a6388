// Package state implements the process-wide application store and the
// persistence contracts used to carry selected slices across runs.
//
// Responsibilities:
//   - Store[S, I] owns one immutable snapshot S, runs every intent I through a
//     single composed reducer and publishes the result to listeners before
//     Dispatch returns.
//   - Dispatches are serialized; listeners are invoked in subscription order
//     while the dispatch that produced the snapshot still holds the store.
//   - SnapshotStore[T] only loads/saves a single value for a single Ref.
//     Persist wires a store slice into a SnapshotStore; Restore reads it back.
//
// Data flow:
//
//	intent -> Store.Dispatch -> reducer(S, I) -> S' -> listeners(ctx, S')
//
// Reentrancy:
//
//	The store records the goroutine that holds it while the reducer and the
//	listeners run. Dispatch called again from that goroutine, from a reducer
//	closure or from a listener with any context, panics with
//	ErrReentrantDispatch instead of blocking. Other goroutines wait their turn.
package state
