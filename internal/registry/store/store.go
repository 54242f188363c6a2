// Package store holds the in-memory profile state and its two indexes.
//
// The store owns the address-to-profile mapping and the username reverse
// index. Every mutation goes through one of the primitives below; each
// primitive either fully applies or leaves both indexes unchanged, so the
// cross-index invariants (bijective username binding, unique keys per
// profile, item cap) hold between any two calls.
package store

import (
	"errors"

	"github.com/linktrue/linktrue/internal/registry/domain"
)

var (
	// ErrUsernameTaken indicates the username is bound to another address.
	ErrUsernameTaken = errors.New("Username already taken")
	// ErrDuplicateKey indicates the profile already holds the key.
	ErrDuplicateKey = errors.New("Duplicate key found!")
	// ErrTooManyItems indicates the profile is at the item cap.
	ErrTooManyItems = errors.New("Max allowed items are 50!")
	// ErrKeyNotFound indicates the profile does not hold the key.
	ErrKeyNotFound = errors.New("Key not found")
)

// Profile is one wallet's registry state.
type Profile struct {
	Username string
	Items    []domain.Item
}

// Store indexes profiles by address and usernames by owner.
//
// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	profiles map[domain.Address]*Profile
	owners   map[string]domain.Address
}

// New creates an empty store.
func New() *Store {
	return &Store{
		profiles: make(map[domain.Address]*Profile),
		owners:   make(map[string]domain.Address),
	}
}

// CreateOrGet returns the profile for addr, creating an empty one on
// first use. Profiles are never deleted, only emptied.
func (s *Store) CreateOrGet(addr domain.Address) *Profile {
	if profile, ok := s.profiles[addr]; ok {
		return profile
	}
	profile := &Profile{}
	s.profiles[addr] = profile
	return profile
}

// BindUsername claims name for addr. The name must be unbound.
func (s *Store) BindUsername(addr domain.Address, name string) error {
	if _, taken := s.owners[name]; taken {
		return ErrUsernameTaken
	}
	profile := s.CreateOrGet(addr)
	profile.Username = name
	s.owners[name] = addr
	return nil
}

// UnbindUsername releases addr's current username. No-op when the
// address holds none.
func (s *Store) UnbindUsername(addr domain.Address) {
	profile, ok := s.profiles[addr]
	if !ok || profile.Username == "" {
		return
	}
	delete(s.owners, profile.Username)
	profile.Username = ""
}

// InsertItem appends (key, value) to addr's profile. The key must be
// absent and the profile under the item cap.
func (s *Store) InsertItem(addr domain.Address, key, value string) error {
	profile := s.CreateOrGet(addr)
	if indexOfKey(profile.Items, key) >= 0 {
		return ErrDuplicateKey
	}
	if len(profile.Items) >= domain.MaxItems {
		return ErrTooManyItems
	}
	profile.Items = append(profile.Items, domain.Item{Key: key, Value: value})
	return nil
}

// UpdateItem replaces the value for key in place, preserving position.
func (s *Store) UpdateItem(addr domain.Address, key, value string) error {
	profile, ok := s.profiles[addr]
	if !ok {
		return ErrKeyNotFound
	}
	i := indexOfKey(profile.Items, key)
	if i < 0 {
		return ErrKeyNotFound
	}
	profile.Items[i].Value = value
	return nil
}

// RemoveItem deletes the entry for key, shifting later entries to close
// the gap.
func (s *Store) RemoveItem(addr domain.Address, key string) error {
	profile, ok := s.profiles[addr]
	if !ok {
		return ErrKeyNotFound
	}
	i := indexOfKey(profile.Items, key)
	if i < 0 {
		return ErrKeyNotFound
	}
	profile.Items = append(profile.Items[:i], profile.Items[i+1:]...)
	return nil
}

// ReplaceItems swaps addr's whole item collection. Used by transfer,
// which moves a collection wholesale rather than entry by entry.
func (s *Store) ReplaceItems(addr domain.Address, items []domain.Item) {
	profile := s.CreateOrGet(addr)
	if len(items) == 0 {
		profile.Items = nil
		return
	}
	profile.Items = append([]domain.Item(nil), items...)
}

// Resolve returns the address bound to name.
func (s *Store) Resolve(name string) (domain.Address, bool) {
	addr, ok := s.owners[name]
	return addr, ok
}

// Get returns a copy of addr's profile state.
func (s *Store) Get(addr domain.Address) (Profile, bool) {
	profile, ok := s.profiles[addr]
	if !ok {
		return Profile{}, false
	}
	out := Profile{Username: profile.Username}
	if len(profile.Items) > 0 {
		out.Items = append([]domain.Item(nil), profile.Items...)
	}
	return out, true
}

// HasKey reports whether addr's profile holds key.
func (s *Store) HasKey(addr domain.Address, key string) bool {
	profile, ok := s.profiles[addr]
	if !ok {
		return false
	}
	return indexOfKey(profile.Items, key) >= 0
}

// ItemCount returns the number of entries in addr's profile.
func (s *Store) ItemCount(addr domain.Address) int {
	profile, ok := s.profiles[addr]
	if !ok {
		return 0
	}
	return len(profile.Items)
}

// Seed loads one persisted record, restoring both indexes. Used to
// rebuild state on startup; record usernames are trusted to be unique.
func (s *Store) Seed(record domain.ProfileRecord) {
	profile := s.CreateOrGet(record.Address)
	profile.Username = record.Username
	profile.Items = append([]domain.Item(nil), record.Items...)
	if record.Username != "" {
		s.owners[record.Username] = record.Address
	}
}

// Record returns the persistence shape of addr's profile.
func (s *Store) Record(addr domain.Address) domain.ProfileRecord {
	record := domain.ProfileRecord{Address: addr}
	profile, ok := s.profiles[addr]
	if !ok {
		return record
	}
	record.Username = profile.Username
	if len(profile.Items) > 0 {
		record.Items = append([]domain.Item(nil), profile.Items...)
	}
	return record
}

// Usernames returns the reverse index as a username-to-address map copy.
func (s *Store) Usernames() map[string]domain.Address {
	out := make(map[string]domain.Address, len(s.owners))
	for name, addr := range s.owners {
		out[name] = addr
	}
	return out
}

func indexOfKey(items []domain.Item, key string) int {
	for i, item := range items {
		if item.Key == key {
			return i
		}
	}
	return -1
}
