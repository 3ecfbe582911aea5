package router

import (
	"errors"
	"fmt"

	"github.com/netrixframework/interop/types"
)

// Fixed destination identifiers
const (
	RPCHandlerPrefix  = "rpc-handler"
	GraphQLHandler    = "graphql-handler"
	MaritimeTracking  = "maritime-tracking"
	EmergencyResponse = "emergency-response"
	TacticalCommand   = "tactical-command"
)

// ErrNoDestination is returned when no destination can be derived for a message
var ErrNoDestination = errors.New("no destination")

// Destination derives the destination of a message from its protocol family.
// rpc requests fan out per method, every other family has a single destination.
func Destination(p types.Protocol, data types.ParsedData) (string, error) {
	switch p {
	case types.ProtocolRPC:
		req, ok := data.(*types.RPCRequest)
		if !ok || req.Method == "" {
			return "", fmt.Errorf("%w: rpc request without method", ErrNoDestination)
		}
		return RPCHandlerPrefix + ":" + req.Method, nil
	case types.ProtocolGraphQL:
		return GraphQLHandler, nil
	case types.ProtocolAIS:
		return MaritimeTracking, nil
	case types.ProtocolEPIRB:
		return EmergencyResponse, nil
	case types.ProtocolLink16:
		return TacticalCommand, nil
	}
	return "", fmt.Errorf("%w: protocol %q", ErrNoDestination, p)
}
