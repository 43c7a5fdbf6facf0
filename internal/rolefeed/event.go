// Package rolefeed propagates membership role changes. Three paths feed the
// same typed event: local updates made by this process, peer processes
// relaying through the shared Redis channel, and remote edits arriving on
// the staff event subscription.
package rolefeed

import "time"

// Origin names the propagation path an event arrived on.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginPeer   Origin = "peer"
	OriginRemote Origin = "remote"
)

// RoleChanged is the single message shape carried by every propagation path.
type RoleChanged struct {
	Email      string    `json:"email"`
	StoreID    string    `json:"store_id"`
	Role       string    `json:"role"`
	Revision   uint64    `json:"revision"`
	Origin     Origin    `json:"origin"`
	OccurredAt time.Time `json:"occurred_at"`
}
