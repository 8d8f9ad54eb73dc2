package types

// Ports is the simulation's addressing scheme: every participant listens on
// a port derived from its id.
type Ports struct {
	Registry   int
	BaseRouter int
	BaseUser   int
	Fallback   int // where routers send layers they cannot peel
}

// Router returns the port of router id.
func (p Ports) Router(id NodeID) int { return p.BaseRouter + int(id) }

// User returns the port of user id.
func (p Ports) User(id UserID) int { return p.BaseUser + int(id) }
