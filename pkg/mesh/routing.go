package mesh

import "github.com/google/uuid"

// DirectRouter is the default RoutingCollaborator: it only knows how to
// reach devices heard directly, by delegating presence checks to a
// Discovery table. Multi-hop path selection is out of scope for the
// core; a destination not currently a direct neighbour has no route.
type DirectRouter struct {
	discovery *Discovery
}

// NewDirectRouter builds a router backed by discovery's peer table.
func NewDirectRouter(discovery *Discovery) *DirectRouter {
	return &DirectRouter{discovery: discovery}
}

// Route reports to itself as the next hop whenever it is a known
// direct neighbour, and no route otherwise.
func (r *DirectRouter) Route(to uuid.UUID) (uuid.UUID, bool) {
	if r.discovery.Has(to) {
		return to, true
	}
	return uuid.UUID{}, false
}
