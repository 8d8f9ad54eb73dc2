package types

// RegisterNodeRequest is posted by a router to announce itself.
type RegisterNodeRequest struct {
	NodeID NodeID `json:"nodeId"`
	PubKey string `json:"pubKey"`
}

// NodeRegistryResponse lists every node known to the directory.
type NodeRegistryResponse struct {
	Nodes []Node `json:"nodes"`
}

// MessageRequest carries one onion layer to a router, or the fully peeled
// plaintext to a user.
type MessageRequest struct {
	Message string `json:"message"`
}

// SendMessageRequest asks a user to send Message to DestinationUserID.
type SendMessageRequest struct {
	Message           string `json:"message"`
	DestinationUserID UserID `json:"destinationUserId"`
}

// ResultResponse is the envelope of every diagnostic GET route. A nil Result
// is encoded as JSON null.
type ResultResponse[T any] struct {
	Result *T `json:"result"`
}
