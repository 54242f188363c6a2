package domain

import "time"

// Item is a single key-value link entry within a profile.
type Item struct {
	Key   string
	Value string
}

// MaxItems caps the number of link entries a profile may hold.
const MaxItems = 50

// ProfileRecord is the persistence shape of one wallet's profile: the
// claimed username (empty when unregistered) and its link entries in
// insertion order.
type ProfileRecord struct {
	Address   Address
	Username  string
	Items     []Item
	UpdatedAt time.Time
}

// Flatten returns the wire form of a profile: alternating key and value
// slots in stored order, with the username as the trailing element. A
// profile with no items flattens to a single username slot.
func Flatten(items []Item, username string) []string {
	flat := make([]string, 0, len(items)*2+1)
	for _, item := range items {
		flat = append(flat, item.Key, item.Value)
	}
	return append(flat, username)
}
