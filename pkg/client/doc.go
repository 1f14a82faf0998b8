/*
Package client provides a small Go client for the pkg/api HTTP surface:
one constructor and one method per route (Get, GetConflict, Put, Watch).

A Client wraps a connection, wraps constructor errors with
fmt.Errorf("...: %w", err), and exposes one method per RPC -- an
*http.Client and a base URL here, since this store has no cluster
transport to dial into.
*/
package client
