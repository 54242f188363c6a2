// Package service implements the public registry operations.
//
// Every mutating operation validates all of its preconditions against the
// current state before applying anything, writes the resulting records to
// durable storage, and only then commits the in-memory indexes. A failed
// precondition or storage write therefore leaves zero side effects.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linktrue/linktrue/internal/registry/domain"
	"github.com/linktrue/linktrue/internal/registry/event"
	"github.com/linktrue/linktrue/internal/registry/store"
	"github.com/linktrue/linktrue/internal/registry/storage"
	"github.com/linktrue/linktrue/internal/registry/username"
)

var (
	// ErrLengthMismatch indicates keys and values of different lengths.
	ErrLengthMismatch = errors.New("Invalid input! Keys and values must match in length.")
	// ErrEmptyKey indicates an empty key in the input batch.
	ErrEmptyKey = errors.New("Key cannot be empty!")
	// ErrEmptyValue indicates an empty value in the input batch.
	ErrEmptyValue = errors.New("Value cannot be empty!")
	// ErrAlreadyRegistered indicates the wallet already holds a username.
	ErrAlreadyRegistered = errors.New("Wallet already registered!")
	// ErrEmptyNewValue indicates an empty replacement value on edit.
	ErrEmptyNewValue = errors.New("New value cannot be empty!")
	// ErrUsernameNotFound indicates an unbound username lookup.
	ErrUsernameNotFound = errors.New("Username does not exist")
	// ErrAddressNotFound indicates a lookup of the zero address.
	ErrAddressNotFound = errors.New("Address does not exist")
	// ErrInvalidAddress indicates a zero or malformed transfer target.
	ErrInvalidAddress = errors.New("Invalid new address!")
	// ErrTargetHasUsername indicates the transfer target is registered.
	ErrTargetHasUsername = errors.New("New address already has a username")
	// ErrNothingToTransfer indicates the caller holds no username.
	ErrNothingToTransfer = errors.New("No username to transfer")
)

// Registry orchestrates validation, mutation, persistence, and event
// emission for profile operations. It is the single writer over the
// in-memory state; a RWMutex serializes mutations while lookups may
// interleave between any two committed writes.
type Registry struct {
	mu        sync.RWMutex
	state     *store.Store
	persister storage.ProfileStore
	sink      event.Sink
	clock     func() time.Time
	newID     func() string
}

// New creates a registry. Both persister and sink may be nil for a
// memory-only registry.
func New(persister storage.ProfileStore, sink event.Sink) *Registry {
	return &Registry{
		state:     store.New(),
		persister: persister,
		sink:      sink,
		clock:     time.Now,
		newID:     uuid.NewString,
	}
}

// Restore replays persisted profile records into the in-memory indexes.
// Call once before serving.
func (r *Registry) Restore(ctx context.Context) error {
	if r.persister == nil {
		return nil
	}
	records, err := r.persister.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range records {
		r.state.Seed(record)
	}
	return nil
}

// Register claims username for caller and stores the initial items in
// input order.
func (r *Registry) Register(ctx context.Context, caller domain.Address, name string, keys, values []string) error {
	if caller.IsZero() {
		return fmt.Errorf("caller address is required")
	}
	if len(keys) != len(values) {
		return ErrLengthMismatch
	}
	if err := checkPairs(keys, values); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if profile, ok := r.state.Get(caller); ok && profile.Username != "" {
		return ErrAlreadyRegistered
	}
	if err := username.Validate(name); err != nil {
		return err
	}
	if _, bound := r.state.Resolve(name); bound {
		return store.ErrUsernameTaken
	}
	// Simulate the sequential inserts so the whole call aborts before
	// any state change.
	count := r.state.ItemCount(caller)
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup || r.state.HasKey(caller, key) {
			return store.ErrDuplicateKey
		}
		if count >= domain.MaxItems {
			return store.ErrTooManyItems
		}
		seen[key] = struct{}{}
		count++
	}

	record := r.state.Record(caller)
	record.Username = name
	for i := range keys {
		record.Items = append(record.Items, domain.Item{Key: keys[i], Value: values[i]})
	}
	if err := r.persist(ctx, record); err != nil {
		return err
	}

	if err := r.state.BindUsername(caller, name); err != nil {
		return err
	}
	for i := range keys {
		if err := r.state.InsertItem(caller, keys[i], values[i]); err != nil {
			return err
		}
	}

	r.emit(ctx, caller, event.TypeRegistered, event.RegisteredPayload{Username: name})
	return nil
}

// AddItems appends a batch of items to the caller's profile, all or
// nothing.
func (r *Registry) AddItems(ctx context.Context, caller domain.Address, keys, values []string) error {
	if caller.IsZero() {
		return fmt.Errorf("caller address is required")
	}
	if len(keys) != len(values) {
		return ErrLengthMismatch
	}
	if err := checkPairs(keys, values); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.ItemCount(caller)+len(keys) > domain.MaxItems {
		return store.ErrTooManyItems
	}
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup || r.state.HasKey(caller, key) {
			return store.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	record := r.state.Record(caller)
	for i := range keys {
		record.Items = append(record.Items, domain.Item{Key: keys[i], Value: values[i]})
	}
	if err := r.persist(ctx, record); err != nil {
		return err
	}

	for i := range keys {
		if err := r.state.InsertItem(caller, keys[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}

// EditItem replaces the value stored under key, preserving position.
func (r *Registry) EditItem(ctx context.Context, caller domain.Address, key, newValue string) error {
	if caller.IsZero() {
		return fmt.Errorf("caller address is required")
	}
	if newValue == "" {
		return ErrEmptyNewValue
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.HasKey(caller, key) {
		return store.ErrKeyNotFound
	}

	record := r.state.Record(caller)
	for i := range record.Items {
		if record.Items[i].Key == key {
			record.Items[i].Value = newValue
		}
	}
	if err := r.persist(ctx, record); err != nil {
		return err
	}

	if err := r.state.UpdateItem(caller, key, newValue); err != nil {
		return err
	}

	r.emit(ctx, caller, event.TypeProfileUpdated, event.ProfileUpdatedPayload{Key: key, Value: newValue})
	return nil
}

// RemoveItem deletes the entry stored under key.
func (r *Registry) RemoveItem(ctx context.Context, caller domain.Address, key string) error {
	return r.RemoveItems(ctx, caller, []string{key})
}

// RemoveItems deletes a batch of entries, all or nothing; one missing
// key aborts the whole batch.
func (r *Registry) RemoveItems(ctx context.Context, caller domain.Address, keys []string) error {
	if caller.IsZero() {
		return fmt.Errorf("caller address is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, gone := removed[key]; gone || !r.state.HasKey(caller, key) {
			return store.ErrKeyNotFound
		}
		removed[key] = struct{}{}
	}

	record := r.state.Record(caller)
	kept := record.Items[:0]
	for _, item := range record.Items {
		if _, gone := removed[item.Key]; !gone {
			kept = append(kept, item)
		}
	}
	record.Items = kept
	if err := r.persist(ctx, record); err != nil {
		return err
	}

	for _, key := range keys {
		if err := r.state.RemoveItem(caller, key); err != nil {
			return err
		}
		r.emit(ctx, caller, event.TypeProfileUpdated, event.ProfileUpdatedPayload{Key: key, Value: ""})
	}
	return nil
}

// ChangeUsername rebinds the caller to a new username; items are
// untouched.
func (r *Registry) ChangeUsername(ctx context.Context, caller domain.Address, newName string) error {
	if caller.IsZero() {
		return fmt.Errorf("caller address is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := username.Validate(newName); err != nil {
		return err
	}
	if _, bound := r.state.Resolve(newName); bound {
		return store.ErrUsernameTaken
	}

	record := r.state.Record(caller)
	record.Username = newName
	if err := r.persist(ctx, record); err != nil {
		return err
	}

	r.state.UnbindUsername(caller)
	return r.state.BindUsername(caller, newName)
}

// TransferUsername moves the caller's entire profile, username and
// items, to newAddress and empties the caller's record.
func (r *Registry) TransferUsername(ctx context.Context, caller, newAddress domain.Address) error {
	if caller.IsZero() {
		return fmt.Errorf("caller address is required")
	}
	if newAddress.IsZero() {
		return ErrInvalidAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if target, ok := r.state.Get(newAddress); ok && target.Username != "" {
		return ErrTargetHasUsername
	}
	source, ok := r.state.Get(caller)
	if !ok || source.Username == "" {
		return ErrNothingToTransfer
	}

	emptied := domain.ProfileRecord{Address: caller}
	moved := domain.ProfileRecord{
		Address:  newAddress,
		Username: source.Username,
		Items:    source.Items,
	}
	if err := r.persist(ctx, emptied, moved); err != nil {
		return err
	}

	r.state.UnbindUsername(caller)
	r.state.ReplaceItems(caller, nil)
	if err := r.state.BindUsername(newAddress, moved.Username); err != nil {
		return err
	}
	r.state.ReplaceItems(newAddress, moved.Items)

	r.emit(ctx, caller, event.TypeUsernameTransferred, event.UsernameTransferredPayload{
		Username:   moved.Username,
		NewAddress: newAddress.String(),
	})
	return nil
}

// ProfileByUsername returns the flattened profile bound to name.
func (r *Registry) ProfileByUsername(ctx context.Context, name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, bound := r.state.Resolve(name)
	if !bound {
		return nil, ErrUsernameNotFound
	}
	profile, _ := r.state.Get(addr)
	return domain.Flatten(profile.Items, profile.Username), nil
}

// ProfileByAddress returns the flattened profile for addr. Only the zero
// address fails; a wallet that never registered flattens to a single
// empty username slot.
func (r *Registry) ProfileByAddress(ctx context.Context, addr domain.Address) ([]string, error) {
	if addr.IsZero() {
		return nil, ErrAddressNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, _ := r.state.Get(addr)
	return domain.Flatten(profile.Items, profile.Username), nil
}

// Usernames returns a copy of the reverse index. Intended for invariant
// checks in tests and diagnostics.
func (r *Registry) Usernames() map[string]domain.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Usernames()
}

func (r *Registry) persist(ctx context.Context, records ...domain.ProfileRecord) error {
	if r.persister == nil {
		return nil
	}
	now := r.clock().UTC()
	for i := range records {
		records[i].UpdatedAt = now
	}
	if err := r.persister.PutProfiles(ctx, records...); err != nil {
		return fmt.Errorf("persist profiles: %w", err)
	}
	return nil
}

func (r *Registry) emit(ctx context.Context, actor domain.Address, typ event.Type, payload any) {
	if r.sink == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal %s payload: %v", typ, err)
		return
	}
	evt := event.Event{
		ID:          r.newID(),
		Timestamp:   r.clock().UTC(),
		Type:        typ,
		Actor:       actor,
		PayloadJSON: raw,
	}
	if err := r.sink.Append(ctx, evt); err != nil {
		log.Printf("append %s event: %v", typ, err)
	}
}

func checkPairs(keys, values []string) error {
	for i := range keys {
		if keys[i] == "" {
			return ErrEmptyKey
		}
		if values[i] == "" {
			return ErrEmptyValue
		}
	}
	return nil
}
