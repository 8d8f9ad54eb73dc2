// Package circuit selects the routers a message travels through.
//
// Selection is weighted random without replacement: a node's weight is
// 1/(uses+1), where uses counts every time this client has put the node on
// a circuit. Counts live in a UsageTracker owned by the client for its whole
// lifetime, so load spreads across the directory over many messages.
//
// A directory with fewer nodes than the path length still yields a full
// circuit: the candidate pool is padded by repeating entries, which makes
// repeated hops possible.
//
// Concurrency: UsageTracker is safe for concurrent use; one circuit is drawn
// under the tracker's lock so its draws see consistent counts.
package circuit
