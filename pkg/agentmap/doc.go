/*
Package agentmap provides the agent string <-> dense integer id mapping used
throughout the operation graph.

Every operation's version names its author agent as a string (the wire
form). Storing that string on every operation and in every parent pointer
would be wasteful and would defeat the dense-Order optimizations the
operation graph depends on, so agent strings are interned once into a
uint32 and referenced by id everywhere else. The mapping only grows; ids
are never reused or renumbered.
*/
package agentmap
