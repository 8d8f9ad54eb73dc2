package domain

import (
	interfaces "onionnet/internal/domain/interfaces"
	types "onionnet/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	NodeID               = types.NodeID
	UserID               = types.UserID
	Node                 = types.Node
	Circuit              = types.Circuit
	RegisterNodeRequest  = types.RegisterNodeRequest
	NodeRegistryResponse = types.NodeRegistryResponse
	MessageRequest       = types.MessageRequest
	SendMessageRequest   = types.SendMessageRequest
	Ports                = types.Ports
)

// ResultResponse is the generic {"result": ...} envelope.
type ResultResponse[T any] = types.ResultResponse[T]

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Directory = interfaces.Directory
	Transport = interfaces.Transport
)
