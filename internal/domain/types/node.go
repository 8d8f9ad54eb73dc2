package types

// Node is a directory entry. PubKey is the router's exported public key
// (base64 SPKI).
type Node struct {
	NodeID NodeID `json:"nodeId"`
	PubKey string `json:"pubKey"`
}

// Circuit is the ordered list of routers a message travels through, entry
// hop first.
type Circuit []Node

// IDs returns the node ids of the circuit in traversal order.
func (c Circuit) IDs() []NodeID {
	ids := make([]NodeID, len(c))
	for i := range c {
		ids[i] = c[i].NodeID
	}
	return ids
}
