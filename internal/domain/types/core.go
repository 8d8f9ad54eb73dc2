package types

import "strconv"

// NodeID identifies an onion router registered in the directory.
type NodeID int

// String returns the decimal form of the node id.
func (id NodeID) String() string { return strconv.Itoa(int(id)) }

// UserID identifies a user (message endpoint) in the simulation.
type UserID int

// String returns the decimal form of the user id.
func (id UserID) String() string { return strconv.Itoa(int(id)) }
