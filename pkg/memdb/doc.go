/*
Package memdb composes an operation graph (pkg/opgraph) and its
materialized view (pkg/view) into a single concurrency-safe Store.

Both underlying packages are deliberately single-threaded and
synchronous; Store's sync.RWMutex is the only lock around them, guarding
every read and write so that an embedder never has to reason about the
graph and the view drifting out of step with each other. ApplyAndAdvance
holds the write lock across both the ingest step and the forward-apply
step, so a caller that gets back an Order is guaranteed the view already
reflects it.
*/
package memdb
