// Package storage defines persistence contracts for registry state.
package storage

import (
	"context"
	"errors"

	"github.com/linktrue/linktrue/internal/registry/domain"
	"github.com/linktrue/linktrue/internal/registry/event"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a write violated a uniqueness constraint.
var ErrConflict = errors.New("record conflicts with existing state")

// ProfileStore persists profile records durably. The in-memory engine is
// authoritative at runtime; this store is its snapshot across restarts.
type ProfileStore interface {
	// PutProfiles upserts the given records atomically: either every
	// record is written or none is. A transfer writes both the emptied
	// source and the populated destination in one call.
	PutProfiles(ctx context.Context, records ...domain.ProfileRecord) error
	// ListProfiles returns every persisted record for startup replay.
	ListProfiles(ctx context.Context) ([]domain.ProfileRecord, error)
}

// EventJournal persists committed registry events in append order.
type EventJournal interface {
	// AppendEvent stores one event and returns its assigned sequence
	// number.
	AppendEvent(ctx context.Context, evt event.Event) (uint64, error)
	// ListEvents returns up to limit events in ascending sequence order;
	// a non-positive limit returns all.
	ListEvents(ctx context.Context, limit int) ([]event.Event, error)
}
