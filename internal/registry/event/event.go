// Package event defines the registry notification journal.
//
// Events describe committed state changes only; a failed operation never
// produces one. They are distinct from operational telemetry, which
// captures non-mutating system observations.
package event

import (
	"context"
	"time"

	"github.com/linktrue/linktrue/internal/registry/domain"
)

// Type identifies the kind of a registry event.
type Type string

const (
	// TypeRegistered records a username claim by a wallet.
	TypeRegistered Type = "registry.registered"
	// TypeProfileUpdated records an item edit; an empty value records a
	// deletion.
	TypeProfileUpdated Type = "registry.profile_updated"
	// TypeUsernameTransferred records a whole-profile move to a new
	// wallet.
	TypeUsernameTransferred Type = "registry.username_transferred"
)

// Event is one immutable entry in the registry journal.
type Event struct {
	// ID is a generated unique identifier.
	ID string
	// Seq is the journal sequence number. Assigned by storage on append.
	Seq uint64
	// Timestamp is when the change committed.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// Actor is the wallet whose operation produced the event.
	Actor domain.Address
	// PayloadJSON holds type-specific data as JSON.
	PayloadJSON []byte
}

// Sink receives events after their operation commits. Implementations
// must not mutate registry state; append failures are surfaced to the
// caller for logging but never roll back the committed change.
type Sink interface {
	Append(ctx context.Context, evt Event) error
}
