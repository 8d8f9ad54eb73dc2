// Package user implements a message endpoint of the simulation.
//
// Sending selects a circuit weighted by this user's own usage counters,
// layers the message for it and hands the outermost layer to the entry
// router. Receiving records the plaintext delivered by the exit router.
package user
