/*
Package log provides structured logging via zerolog.

A single global Logger is configured once via Init and used everywhere;
WithAgent, WithDoc, and WithOrder return child loggers carrying the
corresponding field, mirroring the CRDT domain's own identifiers (agent
string, document id, operation order) instead of generic request context.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	log.WithOrder(order).Info().Msg("ingested operation")
*/
package log
