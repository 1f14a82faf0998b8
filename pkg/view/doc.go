// Package view materializes a branch of an operation graph into per-document
// values. ViewDb never stores more than the current tip value(s) of each
// document it has seen; everything else is recovered by replaying
// ApplyForwards/ApplyBackwards against the underlying opgraph.OpDb.
package view
