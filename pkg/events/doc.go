/*
Package events provides an in-memory broker for document change
notification.

This supplements the core operation graph, which otherwise has no way to
tell an embedder that a document's value changed: pkg/memdb publishes a
DocEvent after every forward or backward application that touches a
document, and anything -- an HTTP long-poll handler, a metrics counter, a
test -- can Subscribe to watch them go by.

There is no history and no persistence. A subscriber only sees events
published after it subscribed, and a subscriber whose buffer fills up
silently misses events rather than stalling the publisher.
*/
package events
