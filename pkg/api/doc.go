/*
Package api is the HTTP surface over a pkg/memdb.Store: GET and PUT against
a document key, an optional watch stream, and the usual health/ready/metrics
trio.

It follows the stdlib-only approach the rest of this codebase takes for
small HTTP surfaces -- http.ServeMux and explicit method checks rather than
a router dependency -- and installs a short middleware chain (request id,
access logging, panic recovery) around every handler.
*/
package api
