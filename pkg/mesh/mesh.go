// Package mesh implements the acoustic mesh's discovery and routing
// collaborators: a peer table built from received beacon frames, and a
// trivial direct-neighbours router over that table. Gossip-based
// multi-hop routing and session-key exchange are out of scope; this
// package only needs to interoperate with the core's collaborator
// interfaces closely enough to exercise them end to end.
package mesh

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoRoute is the error for a destination identifier with no known
// next hop. RoutingCollaborator.Route reports that case with ok == false
// rather than returning this error.
var ErrNoRoute = errors.New("mesh: no route to destination")

// DiscoveryCollaborator receives decoded beacon payloads observed on
// the acoustic link. The core calls OnBeacon once per parsed MsgBeacon
// frame; from is the device identifier decoded from payload so callers
// that only care about presence needn't re-parse it.
type DiscoveryCollaborator interface {
	OnBeacon(payload []byte, from uuid.UUID)
}

// RoutingCollaborator resolves a destination identifier to the next
// hop a frame bound for it should be transmitted to.
type RoutingCollaborator interface {
	Route(to uuid.UUID) (nextHop uuid.UUID, ok bool)
}
